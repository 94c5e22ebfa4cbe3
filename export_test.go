package noisedaq

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sbinet/npyio"
)

func TestWriteBufferNPY(t *testing.T) {
	tmp := t.TempDir()
	samples := make([]RawType, 64)
	for i := range samples {
		samples[i] = RawType(i * 13 % 1024)
	}
	filename := filepath.Join(tmp, "buffer.npy")
	if err := WriteBufferNPY(filename, samples); err != nil {
		t.Fatalf("WriteBufferNPY error: %s", err)
	}

	f, err := os.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var readback []uint16
	if err := npyio.Read(f, &readback); err != nil {
		t.Fatalf("npyio.Read error: %s", err)
	}
	if len(readback) != len(samples) {
		t.Fatalf("read %d values, want %d", len(readback), len(samples))
	}
	for i, v := range readback {
		if v != uint16(samples[i]) {
			t.Errorf("readback[%d] = %d, want %d", i, v, samples[i])
		}
	}
}

func TestExportBuffer(t *testing.T) {
	conv := &scriptConverter{}
	a, err := NewAcquisition(conv, 16)
	if err != nil {
		t.Fatal(err)
	}
	tmp := t.TempDir()

	if _, err := a.ExportBuffer(tmp); err == nil {
		t.Errorf("ExportBuffer should fail before any run completes")
	}

	a.BeginFilling()
	if _, err := a.ExportBuffer(tmp); err == nil {
		t.Errorf("ExportBuffer should fail while the buffer is filling")
	}

	conv.raiseCompletion(0)
	conv.raiseCompletion(1)
	filename, err := a.ExportBuffer(tmp)
	if err != nil {
		t.Fatalf("ExportBuffer error on a full buffer: %s", err)
	}
	if !strings.HasSuffix(filename, a.RunID().String()+".npy") {
		t.Errorf("export filename %q not named by run ID %s", filename, a.RunID())
	}
	if _, err := os.Stat(filename); err != nil {
		t.Errorf("exported file missing: %s", err)
	}
}
