// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ember

import "hash/crc32"

// Checksum computes the CRC-32 (IEEE polynomial) over the given data.
// This covers magic through payload on the wire.
func Checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}
