// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ember

import "time"

// clockBase anchors the frame timestamp counter. Using a process-local base
// keeps the counter monotonic; the two endpoints never compare each other's
// timestamps directly, so the bases need not agree.
var clockBase = time.Now()

// NowMillis returns the low 32 bits of a monotonic millisecond counter.
// Wraps at ~49.7 days.
func NowMillis() uint32 {
	return uint32(time.Since(clockBase) / time.Millisecond)
}
