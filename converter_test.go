package noisedaq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelConfigValidate(t *testing.T) {
	good := DefaultChannelConfig()
	assert.NoError(t, good.Validate(), "reference design config must validate")

	var tests = []struct {
		name   string
		mutate func(*ChannelConfig)
	}{
		{"negative input line", func(c *ChannelConfig) { c.InputLine = -1 }},
		{"zero sample ticks", func(c *ChannelConfig) { c.SampleTicks = 0 }},
		{"zero clock divisor", func(c *ChannelConfig) { c.ClockDivisor = 0 }},
		{"manual trigger", func(c *ChannelConfig) { c.Trigger = TriggerManual }},
		{"unknown word format", func(c *ChannelConfig) { c.Format = WordFormat(99) }},
	}
	for _, test := range tests {
		cfg := DefaultChannelConfig()
		test.mutate(&cfg)
		assert.Error(t, cfg.Validate(), "config with %s should not validate", test.name)
	}

	_, err := NewSimConverter(ChannelConfig{})
	assert.Error(t, err, "NewSimConverter must reject an unvalidated zero config")
}

func TestSystemConstants(t *testing.T) {
	// Downstream consumers rely on these as documented contracts.
	assert.InDelta(t, 22045.0, SampleRate, 50.0, "sample rate must stay near 22.05 kHz")
	assert.Equal(t, 2, NumBanks)
	assert.Equal(t, 8, BankDepth)
	assert.InDelta(t, 3.226, MillivoltsPerCode, 0.001, "scale is 3300 mV over 1023 codes")
}
