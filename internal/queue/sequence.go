package queue

import "sync/atomic"

// Sequencer stamps messages with process-wide increasing numbers. The number
// is diagnostic; consumers order by arrival on their channel.
type Sequencer struct{ n atomic.Uint64 }

// Next returns the next sequence number.
func (s *Sequencer) Next() uint64 { return s.n.Add(1) }

// Last returns the most recently issued number, or zero.
func (s *Sequencer) Last() uint64 { return s.n.Load() }
