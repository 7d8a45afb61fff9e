package preview

import "sync"

// Termination describes how a streaming extraction ended.
type Termination string

const (
	// TerminationExhausted means the input ended before the cap was reached.
	TerminationExhausted Termination = "exhausted"
	// TerminationCapped means the cap was reached and reading stopped early.
	TerminationCapped Termination = "capped"
	// TerminationFailed means an I/O or parse error ended the stream.
	TerminationFailed Termination = "failed"
)

// completion records the first termination of a stream. Later calls to
// settle are ignored, so the two ways a stream can end (early stop and
// natural end) never both count.
type completion struct {
	once   sync.Once
	reason Termination
	err    error
}

// settle records reason and err if nothing was recorded yet. It reports
// whether this call was the one that settled.
func (c *completion) settle(reason Termination, err error) bool {
	settled := false
	c.once.Do(func() {
		c.reason = reason
		c.err = err
		settled = true
	})
	return settled
}

// result returns the recorded termination. An unsettled completion reads as
// exhausted.
func (c *completion) result() (Termination, error) {
	c.settle(TerminationExhausted, nil)
	return c.reason, c.err
}
