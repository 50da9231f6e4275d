package pipeline

// DefaultDepth is the number of submissions kept in flight.
const DefaultDepth = 16

// ReadCommand completes a submission: it waits for the device copy, maps
// the result and hands it off for finalization.
type ReadCommand func()

// Scheduler keeps up to Depth submissions in flight.
//
// Submission i goes to slot i mod Depth. If the slot still holds the read
// command of submission i-Depth, that command runs first, so no more than
// Depth submissions are ever issued and unread.
//
// Scheduler is owned by the render goroutine and is not safe for
// concurrent use.
type Scheduler struct {
	slots      []ReadCommand
	next       int
	pending    int
	maxPending int
	submitted  int
}

// NewScheduler creates a scheduler with the given depth. A non-positive
// depth uses DefaultDepth.
func NewScheduler(depth int) *Scheduler {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Scheduler{slots: make([]ReadCommand, depth)}
}

// Submit frees the next slot and then calls issue, which performs the draw
// and copy and returns the read command for it. If issue fails the slot
// stays free and the error is returned. A nil read command is allowed for
// submissions that need no read-back.
func (s *Scheduler) Submit(issue func() (ReadCommand, error)) error {
	slot := s.next % len(s.slots)
	s.runSlot(slot)

	cmd, err := issue()
	if err != nil {
		return err
	}
	s.submitted++
	s.next++
	if cmd == nil {
		return nil
	}
	s.slots[slot] = cmd
	s.pending++
	s.maxPending = max(s.maxPending, s.pending)
	return nil
}

func (s *Scheduler) runSlot(slot int) {
	cmd := s.slots[slot]
	if cmd == nil {
		return
	}
	s.slots[slot] = nil
	s.pending--
	cmd()
}

// Flush runs every pending read command in submission order.
func (s *Scheduler) Flush() {
	for i := range len(s.slots) {
		s.runSlot((s.next + i) % len(s.slots))
	}
}

// Depth returns the number of slots.
func (s *Scheduler) Depth() int { return len(s.slots) }

// Pending returns the number of submissions issued and not yet read.
func (s *Scheduler) Pending() int { return s.pending }

// MaxPending returns the largest Pending value observed.
func (s *Scheduler) MaxPending() int { return s.maxPending }

// Submitted returns the number of successful submissions.
func (s *Scheduler) Submitted() int { return s.submitted }
