package noisedaq

import (
	"strings"
	"testing"
)

func TestGlobalSetup(t *testing.T) {
	if Ports.RPC != 5590 {
		t.Errorf("Ports.RPC = %d, want 5590", Ports.RPC)
	}
	if Ports.Status != Ports.RPC+1 {
		t.Errorf("Ports.Status = %d, want %d", Ports.Status, Ports.RPC+1)
	}
	if Build.Summary == "" {
		t.Error("Build.Summary is empty; the startup banner prints it")
	}
	if !strings.Contains(Build.Summary, Build.Version) {
		t.Errorf("Build.Summary %q does not name version %q", Build.Summary, Build.Version)
	}
	if StartTime.IsZero() {
		t.Error("StartTime was not initialized")
	}
}
