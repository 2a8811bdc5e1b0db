// Package fence tracks GPU work until the hardware reports it complete.
//
// Work is added to a ledger as it is queued (Pending), stamped with a
// hardware submission id when the command buffer is committed (Fenced),
// and retired in submission order once the hardware reports that id.
// A ledger is owned by one goroutine; nothing here locks.
package fence

import "fmt"

// State is the position of a fence in its ledger.
type State uint8

const (
	None State = iota
	Pending
	Fenced
)

func (s State) String() string {
	switch s {
	case None:
		return "none"
	case Pending:
		return "pending"
	case Fenced:
		return "fenced"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// RetireFunc is called once each time a fence retires. The fence is
// already unlinked and in state None, so the callback may add it again.
type RetireFunc func(l *Ledger, f *Fence)

// Fence marks one unit of GPU work. Callers embed or allocate fences
// and keep them for as long as they like; a ledger only links them.
type Fence struct {
	Retire RetireFunc

	id     uint32
	state  State
	ledger *Ledger
}

// New returns an idle fence that calls retire when it completes.
func New(retire RetireFunc) *Fence {
	return &Fence{Retire: retire}
}

// ID returns the hardware submission id. It is only meaningful while
// the fence is Fenced, and keeps its last value after retirement.
func (f *Fence) ID() uint32 { return f.id }

func (f *Fence) State() State { return f.state }

// BeforeEq reports whether submission id a was issued no later than b.
// Ids come from a wrapping 32-bit counter, so the comparison is on the
// signed distance rather than the raw values.
func BeforeEq(a, b uint32) bool {
	return int32(a-b) <= 0
}
