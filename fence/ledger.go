package fence

import "slices"

// Ledger holds the outstanding fences of one hardware queue: the batch
// of work not yet submitted, and the submitted work in id order.
type Ledger struct {
	batch     []*Fence
	submitted []*Fence
}

func NewLedger() *Ledger {
	l := &Ledger{}
	l.Init()
	return l
}

// Init empties both lists without retiring anything.
func (l *Ledger) Init() {
	l.batch = nil
	l.submitted = nil
}

// Add queues f on the batch list. A Pending fence is left where it is;
// a Fenced fence moves back to the batch to wait for a new id.
// It reports whether f was idle, i.e. whether this is new work that
// the caller has to get onto the hardware.
func (l *Ledger) Add(f *Fence) bool {
	wasIdle := f.state == None

	switch f.state {
	case Pending:
		l.own(f)
	case Fenced:
		l.own(f)
		l.submitted = unlink(l.submitted, f)
		fallthrough
	case None:
		f.ledger = l
		l.batch = append(l.batch, f)
		f.state = Pending
	}

	return wasIdle
}

func (l *Ledger) own(f *Fence) {
	if f.ledger != l {
		panic("fence: fence is active on another ledger")
	}
}

// AssignID moves every batched fence to the tail of the submitted list
// with submission id id. Call it once per command buffer, with the id
// the kernel returned for it.
func (l *Ledger) AssignID(id uint32) {
	for _, f := range l.batch {
		f.state = Fenced
		f.id = id
	}
	l.submitted = append(l.submitted, l.batch...)
	clear(l.batch)
	l.batch = l.batch[:0]
}

// RetireThrough retires, oldest first, every submitted fence whose id
// is before or equal to id. It returns the id of the oldest fence left
// outstanding, or id itself when nothing is left.
func (l *Ledger) RetireThrough(id uint32) uint32 {
	for len(l.submitted) > 0 {
		f := l.submitted[0]
		if f.state != Fenced {
			panic("fence: submitted fence in state " + f.state.String())
		}
		if !BeforeEq(f.id, id) {
			return f.id
		}
		l.submitted[0] = nil
		l.submitted = l.submitted[1:]
		l.retire(f)
	}
	return id
}

// RetireAll retires every fence regardless of id, batch list first.
// It is meant for GPU reset and teardown. Fences re-added by a retire
// callback are left queued.
func (l *Ledger) RetireAll() {
	for n := len(l.batch); n > 0 && len(l.batch) > 0; n-- {
		f := l.batch[0]
		l.batch[0] = nil
		l.batch = l.batch[1:]
		l.retire(f)
	}
	for n := len(l.submitted); n > 0 && len(l.submitted) > 0; n-- {
		f := l.submitted[0]
		l.submitted[0] = nil
		l.submitted = l.submitted[1:]
		l.retire(f)
	}
}

func (l *Ledger) retire(f *Fence) {
	f.state = None
	f.ledger = nil
	if f.Retire != nil {
		f.Retire(l, f)
	}
}

// BatchPending reports whether work is queued without a submission id.
func (l *Ledger) BatchPending() bool { return len(l.batch) != 0 }

// SubmittedPending reports whether submitted work awaits retirement.
func (l *Ledger) SubmittedPending() bool { return len(l.submitted) != 0 }

func (l *Ledger) BatchLen() int     { return len(l.batch) }
func (l *Ledger) SubmittedLen() int { return len(l.submitted) }

func unlink(list []*Fence, f *Fence) []*Fence {
	i := slices.Index(list, f)
	if i < 0 {
		return list
	}
	return slices.Delete(list, i, i+1)
}
