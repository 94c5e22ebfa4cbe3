package noisedaq

import (
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davecgh/go-spew/spew"
)

// SimConverter is a drop-in Converter that needs no hardware. A goroutine
// stands in for the conversion engine: once per bank period (BankDepth
// triggers at SampleRate) it fills the active bank from a noise generator,
// switches banks, and invokes the registered completion handler in that same
// goroutine, which therefore plays the part of the interrupt context.
type SimConverter struct {
	cfg ChannelConfig

	banks     [NumBanks][BankDepth]RawType
	active    int   // bank the engine fills next; touched only by the run goroutine
	completed int32 // bank-select status, readable from the handler
	pending   atomic.Bool

	handler  func()
	priority int
	armed    atomic.Bool

	mu    sync.Mutex // guards handler registration and the noise generator
	noise func() RawType

	bankPeriod time.Duration
	wake       chan struct{}
	abort      chan struct{}
}

// NewSimConverter validates cfg and returns a running SimConverter. The
// engine goroutine idles until Arm.
func NewSimConverter(cfg ChannelConfig) (*SimConverter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	bankPeriod := float64(time.Second) * BankDepth / SampleRate
	sc := &SimConverter{
		cfg:        cfg,
		bankPeriod: time.Duration(bankPeriod),
		noise:      func() RawType { return gaussianCode(rng) },
		wake:       make(chan struct{}, 1),
		abort:      make(chan struct{}),
	}
	go sc.run()
	return sc, nil
}

// gaussianCode models the hardware noise source: mid-scale with a modest
// gaussian spread, clipped to the converter's range.
func gaussianCode(rng *rand.Rand) RawType {
	v := 512 + int(rng.NormFloat64()*40)
	if v < 0 {
		v = 0
	} else if v > sampleMask {
		v = sampleMask
	}
	return RawType(v)
}

// SetCompletionHandler registers the completion-signal handler. Call before
// the first Arm.
func (sc *SimConverter) SetCompletionHandler(handler func(), priority int) {
	sc.mu.Lock()
	sc.handler = handler
	sc.priority = priority
	sc.mu.Unlock()
}

// SetNoiseGenerator replaces the sample generator; useful for deterministic
// tests. Call while disarmed.
func (sc *SimConverter) SetNoiseGenerator(gen func() RawType) {
	sc.mu.Lock()
	sc.noise = gen
	sc.mu.Unlock()
}

// Config returns the immutable channel configuration.
func (sc *SimConverter) Config() ChannelConfig { return sc.cfg }

// Arm enables the periodic trigger.
func (sc *SimConverter) Arm() {
	sc.armed.Store(true)
	select {
	case sc.wake <- struct{}{}:
	default:
	}
}

// Disarm stops the periodic trigger.
func (sc *SimConverter) Disarm() { sc.armed.Store(false) }

// Armed reports whether the periodic trigger is enabled.
func (sc *SimConverter) Armed() bool { return sc.armed.Load() }

// CompletedBank returns the index of the bank that just finished filling.
func (sc *SimConverter) CompletedBank() int { return int(atomic.LoadInt32(&sc.completed)) }

// ReadSlot returns the raw value in one slot of the given bank. Contents are
// stable until ClearCompletion.
func (sc *SimConverter) ReadSlot(bank, slot int) RawType { return sc.banks[bank][slot] }

// ClearCompletion acknowledges the completion signal.
func (sc *SimConverter) ClearCompletion() { sc.pending.Store(false) }

// Close stops the engine goroutine.
func (sc *SimConverter) Close() { close(sc.abort) }

// Inspect logs the converter's internal state.
func (sc *SimConverter) Inspect() {
	log.Println(spew.Sdump(sc.cfg))
}

// run is the engine goroutine. The handler runs to completion here before
// the next bank fill begins, which models the hardware guarantee that a
// drained bank is not refilled before the handler finishes.
func (sc *SimConverter) run() {
	ticker := time.NewTicker(sc.bankPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-sc.abort:
			return
		case <-sc.wake:
		case <-ticker.C:
		}
		if !sc.armed.Load() {
			continue
		}
		sc.mu.Lock()
		handler := sc.handler
		gen := sc.noise
		sc.mu.Unlock()
		if handler == nil {
			continue
		}

		// One conversion per trigger pulse into the active bank, then
		// switch banks and raise the completion.
		for slot := range sc.banks[sc.active] {
			sc.banks[sc.active][slot] = gen()
		}
		atomic.StoreInt32(&sc.completed, int32(sc.active))
		sc.active = (sc.active + 1) % NumBanks
		sc.pending.Store(true)
		handler()
	}
}
