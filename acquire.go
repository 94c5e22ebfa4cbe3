package noisedaq

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
)

// AcquisitionState describes the acquisition cycle: Idle (trigger disarmed,
// buffer not full), Filling (trigger armed, cursor < capacity), or Full
// (trigger disarmed, cursor == capacity, full flag set).
type AcquisitionState int

// Names for the possible values of AcquisitionState
const (
	Idle AcquisitionState = iota
	Filling
	Full
)

func (s AcquisitionState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Filling:
		return "Filling"
	case Full:
		return "Full"
	}
	return fmt.Sprintf("AcquisitionState(%d)", int(s))
}

// Acquisition owns one fixed-capacity sample buffer and drains a Converter
// into it. The drain handler runs in the converter's completion context and
// is the only writer of the cursor and samples outside the reset bracket;
// the full flag is atomic so any context may poll it. Consumers may read the
// buffer only between the full flag going true and the next BeginFilling.
type Acquisition struct {
	conv     Converter
	capacity int
	samples  []RawType

	// resetMu is the software analog of a disable-interrupts bracket: the
	// drain handler holds it for the whole read-bank/insert/clear sequence,
	// and BeginFilling holds it for the whole reset, so a reset can never
	// interleave with an in-flight insertion.
	resetMu sync.Mutex
	cursor  int
	full    atomic.Bool
	fullCh  chan struct{} // closed when the current run's buffer fills
	runID   ulid.ULID     // identity of the current run
}

// NewAcquisition creates an Acquisition of the given capacity draining conv,
// and registers its drain handler with the converter at DrainPriority. The
// buffer is allocated once, here; the drain path never allocates.
func NewAcquisition(conv Converter, capacity int) (*Acquisition, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("NewAcquisition with capacity %d, want > 0", capacity)
	}
	a := &Acquisition{
		conv:     conv,
		capacity: capacity,
		samples:  make([]RawType, capacity),
		fullCh:   make(chan struct{}),
	}
	conv.SetCompletionHandler(a.drainCompletedBank, DrainPriority)
	return a, nil
}

// Capacity returns the fixed sample buffer length.
func (a *Acquisition) Capacity() int { return a.capacity }

// BeginFilling discards any run in progress and starts a fresh one: cursor
// to zero, full flag cleared, trigger armed. Legal from any state, including
// mid-fill. A consumer already waiting on a previous run's WaitFull channel
// will not be woken by the new run; it must re-poll.
func (a *Acquisition) BeginFilling() {
	a.resetMu.Lock()
	a.cursor = 0
	a.full.Store(false)
	a.fullCh = make(chan struct{})
	a.runID = ulid.Make()
	a.conv.Arm()
	a.resetMu.Unlock()
}

// drainCompletedBank is the completion-signal handler. It reads the
// bank-select status once, before touching any bank contents, drains the
// completed bank's slots in order, and clears the completion only after the
// last slot read. It does not block, allocate, or perform I/O.
func (a *Acquisition) drainCompletedBank() {
	a.resetMu.Lock()
	bank := a.conv.CompletedBank()
	for slot := 0; slot < BankDepth; slot++ {
		a.insertSample(a.conv.ReadSlot(bank, slot))
	}
	a.conv.ClearCompletion()
	a.resetMu.Unlock()
}

// insertSample masks one raw value to SampleBits and appends it. When the
// buffer is at capacity the value is dropped, the trigger disarmed, and the
// full flag raised; the transition happens exactly once per run, as soon as
// the final slot is stored. The cursor test keeps >= rather than ==.
func (a *Acquisition) insertSample(raw RawType) {
	if a.cursor >= a.capacity {
		a.markFull()
		return
	}
	a.samples[a.cursor] = raw & sampleMask
	a.cursor++
	if a.cursor >= a.capacity {
		a.markFull()
	}
}

func (a *Acquisition) markFull() {
	if a.full.CompareAndSwap(false, true) {
		a.conv.Disarm()
		close(a.fullCh)
	}
}

// FullFlag reports whether the sample buffer has reached capacity. Pollable
// from any context.
func (a *Acquisition) FullFlag() bool { return a.full.Load() }

// WaitFull returns a channel that is closed when the current run's buffer
// fills. The wait is bounded: a full acquisition takes capacity/SampleRate
// seconds once armed. If BeginFilling is called again first, the returned
// channel belongs to the discarded run and never closes.
func (a *Acquisition) WaitFull() <-chan struct{} {
	a.resetMu.Lock()
	defer a.resetMu.Unlock()
	return a.fullCh
}

// Cursor returns the number of samples accepted since the last reset.
func (a *Acquisition) Cursor() int {
	a.resetMu.Lock()
	defer a.resetMu.Unlock()
	return a.cursor
}

// Samples returns the sample buffer. The contents are valid for reading only
// while FullFlag is true and until the next BeginFilling; callers must not
// mutate them.
func (a *Acquisition) Samples() []RawType { return a.samples }

// RunID returns the identity assigned to the current (or just-completed)
// acquisition run.
func (a *Acquisition) RunID() ulid.ULID {
	a.resetMu.Lock()
	defer a.resetMu.Unlock()
	return a.runID
}

// State reports the acquisition cycle state, derived from the full flag and
// the trigger.
func (a *Acquisition) State() AcquisitionState {
	if a.FullFlag() {
		return Full
	}
	if a.conv.Armed() {
		return Filling
	}
	return Idle
}
