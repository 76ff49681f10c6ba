// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package linktest

import (
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/pyrometer/pkg/ember"
	"github.com/Thermoquad/pyrometer/pkg/transport"
)

// sweepInterval is how often the transmitter checks for ACK timeouts
const sweepInterval = 50 * time.Millisecond

// settleGrace bounds how long a finished transmitter keeps draining inbound
// ACKs before declaring the remaining in-flight frames lost
const settleGrace = 250 * time.Millisecond

// Engine starts and supervises test sessions. Each session runs two
// goroutines: a reader pulling bytes off the transport, and an event loop
// that merges those bytes with timer fires and control requests. The event
// loop is the single actor mutating endpoint state.
type Engine struct {
	dialer     transport.Dialer
	onComplete func(SessionID, Summary)

	mu       sync.Mutex
	sessions map[SessionID]*Session
	nextID   SessionID
}

// Option configures an Engine
type Option func(*Engine)

// WithDialer replaces the transport dialer. Tests and the selftest command
// use this to hand sessions pre-connected loopback pairs.
func WithDialer(d transport.Dialer) Option {
	return func(e *Engine) { e.dialer = d }
}

// WithOnComplete registers a callback invoked with the final summary when a
// session reaches a terminal status. Called from the session goroutine.
func WithOnComplete(fn func(SessionID, Summary)) Option {
	return func(e *Engine) { e.onComplete = fn }
}

// NewEngine creates an engine. The default dialer is transport.Open.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		dialer:   transport.Open,
		sessions: make(map[SessionID]*Session),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartTest validates the config and launches a session. Transport dialing
// happens asynchronously inside the session: a connect failure moves the
// session to Failed rather than surfacing here.
func (e *Engine) StartTest(cfg Config) (SessionID, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	now := time.Now()
	e.mu.Lock()
	e.nextID++
	s := &Session{
		id:     e.nextID,
		cfg:    cfg,
		agg:    newAggregator(cfg.WindowSize, now),
		ctrl:   make(chan controlOp, 16),
		done:   make(chan struct{}),
		status: StatusRunning,
	}
	e.sessions[s.id] = s
	e.mu.Unlock()

	go e.run(s)
	return s.id, nil
}

// Session returns the session for an ID
func (e *Engine) Session(id SessionID) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown session %d", id)
	}
	return s, nil
}

// Pause suspends a session's send cadence and timeout clocks. No-op unless
// the session is running.
func (e *Engine) Pause(id SessionID) error {
	return e.control(id, opPause)
}

// Resume continues a paused session. No-op unless the session is paused.
func (e *Engine) Resume(id SessionID) error {
	return e.control(id, opResume)
}

// Stop ends a session cooperatively: the request is observed at the next
// event-loop iteration, never mid-frame. No-op if already terminal.
func (e *Engine) Stop(id SessionID) error {
	return e.control(id, opStop)
}

func (e *Engine) control(id SessionID, op controlOp) error {
	s, err := e.Session(id)
	if err != nil {
		return err
	}
	select {
	case s.ctrl <- op:
	case <-s.done:
		// Session already terminal; idempotent no-op
	}
	return nil
}

// Snapshot returns the current sample window and running summary. Safe to
// call at any time; never blocks the I/O path.
func (e *Engine) Snapshot(id SessionID) (*Snapshot, error) {
	s, err := e.Session(id)
	if err != nil {
		return nil, err
	}
	return s.snapshot(time.Now()), nil
}

// Wait blocks until the session reaches a terminal status and returns the
// final summary
func (e *Engine) Wait(id SessionID) (Summary, error) {
	s, err := e.Session(id)
	if err != nil {
		return Summary{}, err
	}
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary, nil
}

// run is the session lifecycle: dial, pump, finalize
func (e *Engine) run(s *Session) {
	conn, err := e.dialer(s.cfg.Transport)
	if err != nil {
		e.finish(s, StatusFailed, fmt.Sprintf("connect failed: %v", err))
		return
	}
	defer conn.Close()

	// Reader goroutine: the transport's bounded read is the only blocking
	// call on the inbound path. Chunks are handed off by channel so the
	// event loop below is the sole owner of protocol state.
	dataCh := make(chan []byte, 64)
	readErrCh := make(chan error, 1)
	stopReader := make(chan struct{})
	defer close(stopReader)

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				select {
				case dataCh <- chunk:
				case <-stopReader:
					return
				}
			}
			if err != nil {
				select {
				case readErrCh <- err:
				default:
				}
				return
			}
			if n == 0 {
				// Bounded-wait timeout; yield to the stop check
				select {
				case <-stopReader:
					return
				default:
				}
			}
		}
	}()

	send := func(f *ember.Frame) error {
		data, err := ember.Encode(f)
		if err != nil {
			return err
		}
		if _, err := conn.Write(data); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
		return nil
	}

	var tx *transmitter
	var rx *receiver

	// Timer channels stay nil for roles that do not use them, which makes
	// their select cases permanently silent
	var cadence, heartbeat, sweep *time.Ticker
	var cadenceC, heartbeatC, sweepC <-chan time.Time

	startTimers := func() {
		if s.cfg.Mode == ModeTransmitter {
			cadence = time.NewTicker(time.Second / time.Duration(s.cfg.Rate))
			cadenceC = cadence.C
			heartbeat = time.NewTicker(s.cfg.HeartbeatInterval)
			heartbeatC = heartbeat.C
			sweep = time.NewTicker(sweepInterval)
			sweepC = sweep.C
		}
	}
	stopTimers := func() {
		if cadence != nil {
			cadence.Stop()
			cadenceC = nil
		}
		if heartbeat != nil {
			heartbeat.Stop()
			heartbeatC = nil
		}
		if sweep != nil {
			sweep.Stop()
			sweepC = nil
		}
	}
	defer stopTimers()

	if s.cfg.Mode == ModeTransmitter {
		tx = newTransmitter(s.cfg, s.agg, send)
	} else {
		rx = newReceiver(s.cfg, s.agg, send)
	}
	startTimers()

	scanner := ember.NewScanner()
	deadline := time.NewTimer(s.cfg.Duration)
	defer deadline.Stop()

	var pausedAt time.Time
	var deadlineRemaining time.Duration
	paused := false

	fail := func(reason string) {
		if tx != nil {
			tx.finalize(time.Now())
		}
		e.finish(s, StatusFailed, reason)
	}

	processChunk := func(chunk []byte) bool {
		scanner.Push(chunk)
		for {
			frame, ferr := scanner.Next()
			if frame == nil && ferr == nil {
				return true
			}
			now := time.Now()
			if ferr != nil {
				if rx != nil {
					rx.handleFramingError(ferr, now)
				} else {
					s.agg.record(Sample{Kind: SampleError, Value: float64(ferr.Discarded), Time: now})
				}
				continue
			}
			if tx != nil {
				tx.handleFrame(frame, now)
			} else if err := rx.handleFrame(frame, now); err != nil {
				fail(err.Error())
				return false
			}
		}
	}

	for {
		select {
		case op := <-s.ctrl:
			now := time.Now()
			switch op {
			case opPause:
				if paused {
					continue
				}
				paused = true
				pausedAt = now
				stopTimers()
				if !deadline.Stop() {
					// Deadline already fired; race resolves on the next
					// loop iteration via the drained channel
					select {
					case <-deadline.C:
						deadlineRemaining = 0
					default:
					}
				} else {
					deadlineRemaining = s.cfg.Duration - (now.Sub(s.agg.startedAt) - s.agg.pausedTotal)
				}
				s.setStatus(StatusPaused)
			case opResume:
				if !paused {
					continue
				}
				paused = false
				pauseLen := now.Sub(pausedAt)
				s.agg.addPaused(pauseLen)
				if tx != nil {
					tx.shiftDeadlines(pauseLen)
				}
				startTimers()
				if deadlineRemaining > 0 {
					deadline.Reset(deadlineRemaining)
				} else {
					deadline.Reset(0)
				}
				s.setStatus(StatusRunning)
			case opStop:
				if tx != nil {
					tx.finalize(now)
				}
				e.finish(s, StatusStopped, "")
				return
			}

		case chunk := <-dataCh:
			// Inbound frames are processed even while paused, so in-flight
			// ACKs still match and the receiver keeps acknowledging
			if !processChunk(chunk) {
				return
			}

		case err := <-readErrCh:
			fail(fmt.Sprintf("read failed: %v", err))
			return

		case <-cadenceC:
			if err := tx.sendData(time.Now()); err != nil {
				fail(err.Error())
				return
			}

		case <-heartbeatC:
			if err := tx.sendHeartbeat(); err != nil {
				fail(err.Error())
				return
			}

		case <-sweepC:
			if err := tx.sweep(time.Now()); err != nil {
				fail(err.Error())
				return
			}

		case <-deadline.C:
			if paused {
				deadlineRemaining = 0
				continue
			}
			if tx != nil {
				// No further sends; give in-flight ACKs a moment to land so
				// frames sent at the deadline edge are not misreported lost
				stopTimers()
				grace := time.NewTimer(settleGrace)
			settle:
				for tx.outstanding() > 0 {
					select {
					case chunk := <-dataCh:
						if !processChunk(chunk) {
							grace.Stop()
							return
						}
					case <-grace.C:
						break settle
					}
				}
				grace.Stop()
				tx.finalize(time.Now())
			}
			e.finish(s, StatusCompleted, "")
			return
		}
	}
}

// finish freezes the session and notifies the completion observer
func (e *Engine) finish(s *Session, status Status, reason string) {
	summary := s.finalize(status, reason, time.Now())
	if e.onComplete != nil {
		e.onComplete(s.id, summary)
	}
}
