package noisedaq

import (
	"fmt"
	"log"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"

	"github.com/someone42/noisedaq/internal/noisedb"
)

// AcquireControl is the sub-server that handles operation of the acquisition
// core over JSON-RPC.
type AcquireControl struct {
	acq       *Acquisition
	db        *noisedb.Connection
	exportDir string
	display   Display
}

// NewAcquireControl wraps an Acquisition for RPC service. db may be a dummy
// connection; display may be nil. exportDir receives .npy buffer exports.
func NewAcquireControl(acq *Acquisition, db *noisedb.Connection, exportDir string, display Display) *AcquireControl {
	return &AcquireControl{acq: acq, db: db, exportDir: exportDir, display: display}
}

// ServerStatus is the status that AcquireControl reports to clients.
type ServerStatus struct {
	State      string
	Cursor     int
	Capacity   int
	SampleRate float64
	LastRunID  string
}

func (s *AcquireControl) currentStatus() ServerStatus {
	return ServerStatus{
		State:      s.acq.State().String(),
		Cursor:     s.acq.Cursor(),
		Capacity:   s.acq.Capacity(),
		SampleRate: SampleRate,
		LastRunID:  s.acq.RunID().String(),
	}
}

// Begin starts a fresh acquisition run and returns without waiting for it to
// complete. It is legal while a previous run is still filling.
func (s *AcquireControl) Begin(dummy *string, reply *bool) error {
	s.acq.BeginFilling()
	PublishUpdate("STATUS", s.currentStatus())
	*reply = true
	return nil
}

// Status reports the current acquisition state.
func (s *AcquireControl) Status(dummy *string, reply *ServerStatus) error {
	*reply = s.currentStatus()
	return nil
}

// MeasureNoise runs one full acquisition and returns its statistics. The
// call blocks for the duration of the fill (capacity/SampleRate seconds).
// The report is also published on the status port and, when a database is
// connected, recorded there.
func (s *AcquireControl) MeasureNoise(dummy *string, reply *NoiseReport) error {
	report := s.acq.MeasureNoise(s.display)
	PublishUpdate("NOISE", report)
	s.db.RecordRun(&noisedb.RunMessage{
		ID:       report.RunID,
		Start:    report.Time,
		Nsamples: report.Nsamples,
		MeanMV:   report.MeanMV,
		RmsMV:    report.RmsMV,
	})
	*reply = report
	return nil
}

// Export writes the most recent full buffer to the export directory as a
// .npy file and returns its filename. Errors if no run has completed.
func (s *AcquireControl) Export(dummy *string, reply *string) error {
	filename, err := s.acq.ExportBuffer(s.exportDir)
	if err != nil {
		return err
	}
	*reply = filename
	return nil
}

// RunRPCServer sets up and runs a permanent JSON-RPC server on portrpc.
// If block is true it accepts connections forever; otherwise it returns
// after the listener is up.
func RunRPCServer(control *AcquireControl, portrpc int, block bool) {
	server := rpc.NewServer()
	if err := server.Register(control); err != nil {
		log.Fatal("rpc.Register error: ", err)
	}
	server.HandleHTTP(rpc.DefaultRPCPath, rpc.DefaultDebugPath)
	port := fmt.Sprintf(":%d", portrpc)
	listener, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatal("listen error: ", err)
	}

	accept := func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				ProblemLogger.Printf("accept error: %s", err.Error())
				return
			}
			go server.ServeCodec(jsonrpc.NewServerCodec(conn))
		}
	}
	if block {
		accept()
	} else {
		go accept()
	}
}
