package noisedaq

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Display is the narrow face of the text display driver: string output plus
// a line advance. The real driver lives outside this package.
type Display interface {
	WriteString(s string)
	NextLine()
}

// NoiseReport holds the statistics of one full sample buffer, in physical
// units.
type NoiseReport struct {
	RunID    string
	Time     time.Time
	Nsamples int
	MeanMV   float64 // mean of the scaled samples, millivolts
	RmsMV    float64 // RMS deviation about the mean, millivolts
}

// MeasureNoise acquires one full buffer and reports its mean and RMS
// deviation in millivolts. It blocks the calling context for the duration of
// one acquisition (capacity/SampleRate seconds). If d is non-nil the
// statistics are also written to the display, one label line and one value
// line each. The buffer is only read, never reset, after the fill.
func (a *Acquisition) MeasureNoise(d Display) NoiseReport {
	a.BeginFilling()
	<-a.WaitFull()

	mv := make([]float64, a.capacity)
	for i, s := range a.Samples() {
		mv[i] = float64(s) * MillivoltsPerCode
	}
	mean := stat.Mean(mv, nil)
	rms := stat.PopStdDev(mv, nil)

	report := NoiseReport{
		RunID:    a.RunID().String(),
		Time:     time.Now(),
		Nsamples: a.capacity,
		MeanMV:   mean,
		RmsMV:    rms,
	}
	if d != nil {
		d.WriteString("Noise mean:")
		d.NextLine()
		d.WriteString(fmt.Sprintf("%g mV", mean))
		d.NextLine()
		d.WriteString("Noise RMS:")
		d.NextLine()
		d.WriteString(fmt.Sprintf("%g mV", rms))
	}
	return report
}
