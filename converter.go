package noisedaq

import "fmt"

// RawType holds one raw converter code.
type RawType uint16

// System constants for the acquisition hardware. The trigger timer period is
// fixed at design time so the FFT of a full buffer has a musically meaningful
// bandwidth; downstream analysis code may rely on SampleRate when it
// interprets buffer contents as a time series.
const (
	// SampleRate is the rate (samples/second) at which the periodic trigger
	// fires while armed. With the reference divisor settings the true rate
	// is about 22045 Hz.
	SampleRate = 22045.0

	// NumBanks and BankDepth describe the converter's result banks: the
	// engine fills one bank while the other is drained, and raises one
	// completion signal per bank fill.
	NumBanks  = 2
	BankDepth = 8

	// SampleBits is the significant width of one raw code. Stored samples
	// are masked to this width.
	SampleBits = 10
	sampleMask = 1<<SampleBits - 1

	// DefaultCapacity is the standard sample buffer length.
	DefaultCapacity = 2048

	// MillivoltsPerCode converts a raw code to millivolts: 3300 mV full
	// scale over 1023 codes.
	MillivoltsPerCode = 3300.0 / 1023.0

	// DrainPriority is the interrupt priority at which the drain handler is
	// registered, above ordinary work but not above everything.
	DrainPriority = 3
)

// VoltageReference selects the converter's reference source.
type VoltageReference int

// Names for the possible values of VoltageReference
const (
	RefSupply   VoltageReference = iota // use the analog supply rails
	RefExternal                         // use the external reference pins
)

// TriggerSelect chooses what initiates each conversion.
type TriggerSelect int

// Names for the possible values of TriggerSelect
const (
	TriggerPeriodicTimer TriggerSelect = iota // fixed-period timer (the only supported mode while acquiring)
	TriggerManual                             // software-initiated single conversions
)

// WordFormat selects how the converter presents each result word.
type WordFormat int

// Names for the possible values of WordFormat
const (
	FormatUint16 WordFormat = iota
	FormatUint32
)

// ChannelConfig collects the conversion channel settings: which input line is
// sampled, the reference, sample-and-hold timing, conversion clock divisor,
// trigger source, and result word format. It is built once, validated once,
// and never changed while a trigger is armed; there are no setters.
type ChannelConfig struct {
	InputLine    int              // analog input line number
	Reference    VoltageReference // voltage reference selection
	SampleTicks  int              // sample-and-hold time, in conversion clocks
	ClockDivisor int              // peripheral clock divisor for the conversion clock
	Trigger      TriggerSelect    // what initiates conversions
	Format       WordFormat       // result word format
}

// DefaultChannelConfig returns the reference design's channel settings:
// input line 2, supply-rail references, 12-clock sample time, and a divisor
// giving a 1.2 MHz conversion clock, triggered by the periodic timer.
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		InputLine:    2,
		Reference:    RefSupply,
		SampleTicks:  12,
		ClockDivisor: 14,
		Trigger:      TriggerPeriodicTimer,
		Format:       FormatUint32,
	}
}

// Validate checks a ChannelConfig once, before any trigger is armed.
func (c ChannelConfig) Validate() error {
	if c.InputLine < 0 {
		return fmt.Errorf("ChannelConfig.InputLine = %d, must be nonnegative", c.InputLine)
	}
	if c.SampleTicks < 1 {
		return fmt.Errorf("ChannelConfig.SampleTicks = %d, must be at least 1", c.SampleTicks)
	}
	if c.ClockDivisor < 1 {
		return fmt.Errorf("ChannelConfig.ClockDivisor = %d, must be at least 1", c.ClockDivisor)
	}
	if c.Trigger != TriggerPeriodicTimer {
		return fmt.Errorf("ChannelConfig.Trigger = %d: only the periodic timer trigger supports buffered acquisition", c.Trigger)
	}
	if c.Format != FormatUint16 && c.Format != FormatUint32 {
		return fmt.Errorf("ChannelConfig.Format = %d is not a known word format", c.Format)
	}
	return nil
}

// Converter is the interface to the conversion hardware: a periodic trigger
// source plus a conversion engine that deposits one raw sample per trigger
// pulse into the active of two fixed-size banks. When a bank fills, the
// engine switches banks and raises exactly one completion signal, which
// invokes the registered handler.
//
// The handler contract: call CompletedBank before touching any bank contents
// (after the handler starts, the other bank is actively refilling, and
// draining the wrong bank reads slots that may be overwritten mid-read), read
// all BankDepth slots in slot order with ReadSlot, and call ClearCompletion
// only after the last slot read. The hardware guarantees bank contents stay
// stable until the completion is cleared.
type Converter interface {
	// SetCompletionHandler registers the completion-signal handler at the
	// given priority. Registration happens once, before the first Arm, and
	// stays in effect across Disarm.
	SetCompletionHandler(handler func(), priority int)

	// Arm enables the periodic trigger; conversions occur until Disarm.
	Arm()

	// Disarm stops the periodic trigger. Already-raised completions are
	// still delivered to the handler.
	Disarm()

	// Armed reports whether the periodic trigger is currently enabled.
	Armed() bool

	// CompletedBank returns the bank-select status: the index of the bank
	// that just finished filling.
	CompletedBank() int

	// ReadSlot returns the raw value in one slot of the given bank.
	ReadSlot(bank, slot int) RawType

	// ClearCompletion acknowledges the completion signal, releasing the
	// drained bank back to the engine.
	ClearCompletion()
}
