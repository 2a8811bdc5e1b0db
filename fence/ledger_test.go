package fence

import (
	"math"
	"slices"
	"testing"
)

// recorder collects retirements in order.
type recorder struct {
	retired []*Fence
}

func (r *recorder) fence() *Fence {
	return New(func(l *Ledger, f *Fence) {
		if f.State() != None {
			panic("retired fence not idle")
		}
		if slices.Contains(l.batch, f) || slices.Contains(l.submitted, f) {
			panic("retired fence still linked")
		}
		r.retired = append(r.retired, f)
	})
}

func TestBeforeEq(t *testing.T) {
	for _, tc := range []struct {
		a, b uint32
		want bool
	}{
		{1, 1, true},
		{1, 2, true},
		{2, 1, false},
		{math.MaxUint32, 0, true},
		{0, math.MaxUint32, false},
		{math.MaxUint32 - 5, 3, true},
		{3, math.MaxUint32 - 5, false},
		{0, 1<<31 - 1, true},
		{1<<31 - 1, 0, false},
		{1<<31 + 1, 0, true}, // more than half the range ahead reads as behind
	} {
		if got := BeforeEq(tc.a, tc.b); got != tc.want {
			t.Errorf("BeforeEq(%d, %d) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestAddIdempotent(t *testing.T) {
	var r recorder
	l := NewLedger()
	f := r.fence()

	if !l.Add(f) {
		t.Error("first Add should report an idle fence")
	}
	for i := 0; i < 3; i++ {
		if l.Add(f) {
			t.Error("re-adding a pending fence reported idle")
		}
	}
	if f.State() != Pending {
		t.Errorf("state = %v, want pending", f.State())
	}
	if l.BatchLen() != 1 {
		t.Errorf("batch holds %d entries, want 1", l.BatchLen())
	}
	if l.SubmittedPending() {
		t.Error("nothing should be submitted")
	}
}

func TestAssignID(t *testing.T) {
	var r recorder
	l := NewLedger()
	fs := []*Fence{r.fence(), r.fence(), r.fence()}
	for _, f := range fs {
		l.Add(f)
	}

	l.AssignID(42)

	if l.BatchPending() {
		t.Error("batch not empty after AssignID")
	}
	if l.SubmittedLen() != len(fs) {
		t.Fatalf("submitted holds %d entries, want %d", l.SubmittedLen(), len(fs))
	}
	for i, f := range fs {
		if f.State() != Fenced || f.ID() != 42 {
			t.Errorf("fence %d: state %v id %d", i, f.State(), f.ID())
		}
		if l.submitted[i] != f {
			t.Errorf("fence %d out of order", i)
		}
	}

	// An empty batch assigns nothing.
	l.AssignID(43)
	if l.SubmittedLen() != len(fs) {
		t.Error("AssignID on an empty batch changed the submitted list")
	}
}

func TestRebatchFenced(t *testing.T) {
	var r recorder
	l := NewLedger()
	a, b := r.fence(), r.fence()
	l.Add(a)
	l.Add(b)
	l.AssignID(1)

	if l.Add(a) {
		t.Error("re-batching a fenced fence reported idle")
	}
	if a.State() != Pending {
		t.Errorf("state = %v, want pending", a.State())
	}
	if l.BatchLen() != 1 || l.SubmittedLen() != 1 || l.submitted[0] != b {
		t.Fatalf("batch %d submitted %d", l.BatchLen(), l.SubmittedLen())
	}

	l.AssignID(2)
	if got := l.RetireThrough(1); got != 2 {
		t.Errorf("RetireThrough(1) = %d, want 2", got)
	}
	if len(r.retired) != 1 || r.retired[0] != b {
		t.Errorf("retired %v, want only b", r.retired)
	}
}

func TestRetireThroughPrefix(t *testing.T) {
	var r recorder
	l := NewLedger()
	var fs []*Fence
	for id := uint32(10); id <= 14; id++ {
		f := r.fence()
		fs = append(fs, f)
		l.Add(f)
		l.AssignID(id)
	}

	if got := l.RetireThrough(12); got != 13 {
		t.Errorf("RetireThrough(12) = %d, want 13", got)
	}
	if !slices.Equal(r.retired, fs[:3]) {
		t.Errorf("retired %d fences, want the first 3 in order", len(r.retired))
	}
	if l.SubmittedLen() != 2 {
		t.Errorf("%d fences outstanding, want 2", l.SubmittedLen())
	}

	// Retiring an older id than anything outstanding is a no-op.
	if got := l.RetireThrough(5); got != 13 {
		t.Errorf("RetireThrough(5) = %d, want 13", got)
	}

	if got := l.RetireThrough(20); got != 20 {
		t.Errorf("RetireThrough(20) = %d, want 20", got)
	}
	if !slices.Equal(r.retired, fs) || l.SubmittedPending() {
		t.Error("not every fence retired")
	}
}

func TestRetireThroughSharedID(t *testing.T) {
	var r recorder
	l := NewLedger()
	a, b, c := r.fence(), r.fence(), r.fence()
	l.Add(a)
	l.Add(b)
	l.AssignID(7)
	l.Add(c)
	l.AssignID(8)

	if got := l.RetireThrough(7); got != 8 {
		t.Errorf("RetireThrough(7) = %d, want 8", got)
	}
	if !slices.Equal(r.retired, []*Fence{a, b}) {
		t.Error("fences sharing an id should retire together")
	}
}

func TestRetireThroughWraparound(t *testing.T) {
	var r recorder
	l := NewLedger()
	ids := []uint32{math.MaxUint32 - 1, math.MaxUint32, 0, 1}
	var fs []*Fence
	for _, id := range ids {
		f := r.fence()
		fs = append(fs, f)
		l.Add(f)
		l.AssignID(id)
	}

	if got := l.RetireThrough(math.MaxUint32); got != 0 {
		t.Errorf("RetireThrough(max) = %d, want 0", got)
	}
	if !slices.Equal(r.retired, fs[:2]) {
		t.Errorf("retired %d fences before the wrap, want 2", len(r.retired))
	}

	if got := l.RetireThrough(0); got != 1 {
		t.Errorf("RetireThrough(0) = %d, want 1", got)
	}
	if got := l.RetireThrough(1); got != 1 {
		t.Errorf("RetireThrough(1) = %d, want 1", got)
	}
	if !slices.Equal(r.retired, fs) {
		t.Error("wrapped fences did not retire in order")
	}
}

func TestRetireAll(t *testing.T) {
	var r recorder
	l := NewLedger()
	var submitted, batched []*Fence
	for i := 0; i < 3; i++ {
		f := r.fence()
		submitted = append(submitted, f)
		l.Add(f)
		l.AssignID(uint32(i + 1))
	}
	for i := 0; i < 2; i++ {
		f := r.fence()
		batched = append(batched, f)
		l.Add(f)
	}

	l.RetireAll()

	want := append(slices.Clone(batched), submitted...)
	if !slices.Equal(r.retired, want) {
		t.Errorf("retired %d fences, want batch then submitted (%d)", len(r.retired), len(want))
	}
	if l.BatchPending() || l.SubmittedPending() {
		t.Error("lists not empty after RetireAll")
	}
}

func TestRetireCallbackReadds(t *testing.T) {
	l := NewLedger()
	count := 0
	f := New(func(l *Ledger, f *Fence) {
		count++
		if count == 1 {
			if !l.Add(f) {
				t.Error("re-add from retire callback should see an idle fence")
			}
		}
	})
	l.Add(f)
	l.AssignID(1)

	l.RetireThrough(1)
	if count != 1 || f.State() != Pending || l.BatchLen() != 1 {
		t.Fatalf("count %d state %v batch %d", count, f.State(), l.BatchLen())
	}

	l.AssignID(2)
	l.RetireAll()
	if count != 2 || f.State() != None {
		t.Errorf("count %d state %v", count, f.State())
	}
}

func TestRetireThroughPanicsOnBadState(t *testing.T) {
	var r recorder
	l := NewLedger()
	f := r.fence()
	l.Add(f)
	l.AssignID(1)
	f.state = Pending // corrupted by a caller

	defer func() {
		if recover() == nil {
			t.Error("RetireThrough accepted a non-fenced submitted fence")
		}
	}()
	l.RetireThrough(1)
}

func TestAddOtherLedgerPanics(t *testing.T) {
	var r recorder
	a, b := NewLedger(), NewLedger()
	f := r.fence()
	a.Add(f)

	defer func() {
		if recover() == nil {
			t.Error("Add accepted a fence active on another ledger")
		}
	}()
	b.Add(f)
}

func TestInit(t *testing.T) {
	var l Ledger
	l.Init()
	if l.BatchPending() || l.SubmittedPending() {
		t.Error("new ledger not empty")
	}
	if got := l.RetireThrough(9); got != 9 {
		t.Errorf("RetireThrough on empty ledger = %d, want 9", got)
	}
	l.RetireAll()
}

func TestStateString(t *testing.T) {
	for s, want := range map[State]string{None: "none", Pending: "pending", Fenced: "fenced", 7: "State(7)"} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", uint8(s), got, want)
		}
	}
}
