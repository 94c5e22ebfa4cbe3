package noisedaq

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
)

// WriteBufferNPY writes one full sample buffer to filename in numpy .npy
// format (uint16, one element per sample), the hand-off format for the
// offline spectral-analysis tools.
func WriteBufferNPY(filename string, samples []RawType) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create %s: %v", filename, err)
	}
	defer f.Close()

	data := make([]uint16, len(samples))
	for i, s := range samples {
		data[i] = uint16(s)
	}
	if err := npyio.Write(f, data); err != nil {
		return fmt.Errorf("could not write npy data to %s: %v", filename, err)
	}
	return nil
}

// ExportBuffer writes the acquisition's buffer into dir, named by the run ID,
// and returns the full filename. The buffer must be full; exporting a
// partial run is an error.
func (a *Acquisition) ExportBuffer(dir string) (string, error) {
	if !a.FullFlag() {
		return "", fmt.Errorf("sample buffer is not full; nothing to export")
	}
	filename := filepath.Join(dir, a.RunID().String()+".npy")
	if err := WriteBufferNPY(filename, a.Samples()); err != nil {
		return "", err
	}
	return filename, nil
}
