// Package noisedb records completed acquisition runs to a ClickHouse database.
package noisedb

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

// RunMessage describes one completed acquisition run for entry in the DB.
type RunMessage struct {
	ID       string // ULID of the run
	Start    time.Time
	Nsamples int
	MeanMV   float64
	RmsMV    float64
}

const databaseName = "noisedaq" // official SQL name of the database

// Connection wraps a ClickHouse connection plus the channel on which run
// messages are queued for insertion.
type Connection struct {
	conn   clickhouse.Conn
	err    error
	runmsg chan *RunMessage
	sync.WaitGroup
}

// IsConnected reports whether the underlying DB connection is usable.
func (db *Connection) IsConnected() bool {
	return (db != nil) && (db.conn != nil) && (db.err == nil)
}

// PingServer checks that a ClickHouse server is reachable with the ambient
// credentials and prints its version.
func PingServer() error {
	db := createConnection()
	if !db.IsConnected() {
		return fmt.Errorf("database is not connected: %v", db.err)
	}
	v, err := db.conn.ServerVersion()
	if err != nil {
		return err
	}
	fmt.Printf("ClickHouse server is alive. Version:\n%s\n", v)
	return db.conn.Close()
}

// StartConnection opens the DB connection and launches the goroutine that
// drains run messages until abort closes. If no server is reachable, the
// returned Connection silently discards messages.
func StartConnection(abort <-chan struct{}) *Connection {
	db := createConnection()
	if db.IsConnected() {
		db.ensureTable()
	}
	db.Add(1)
	go db.handleConnection(abort)
	return db
}

// DummyConnection returns a Connection that is never connected; RecordRun on
// it is a no-op. For tests and for hosts without a database.
func DummyConnection() *Connection {
	return &Connection{err: fmt.Errorf("dummy connection")}
}

func createConnection() *Connection {
	db := &Connection{}
	auth := clickhouse.Auth{
		Database: databaseName,
		Username: os.Getenv("NOISEDAQ_DB_USER"),
		Password: os.Getenv("NOISEDAQ_DB_PASSWORD"),
	}
	addr := os.Getenv("NOISEDAQ_DB_ADDR")
	if addr == "" {
		addr = "localhost:9000"
	}
	opt := clickhouse.Options{
		Addr:        []string{addr},
		Auth:        auth,
		DialTimeout: 2 * time.Second,
	}
	conn, err := clickhouse.Open(&opt)
	if err != nil {
		db.err = err
		return db
	}
	db.conn = conn

	ctx := context.Background()
	if err = conn.Ping(ctx); err != nil {
		if exception, ok := err.(*clickhouse.Exception); ok {
			fmt.Printf("Exception [%d] %s \n%s\n", exception.Code, exception.Message, exception.StackTrace)
		}
		db.err = err
		return db
	}
	db.runmsg = make(chan *RunMessage, 10)
	return db
}

func (db *Connection) ensureTable() {
	ctx := context.Background()
	err := db.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS noiseruns (
		id String,
		start DateTime64(6),
		nsamples Int32,
		mean_mv Float64,
		rms_mv Float64
	) ENGINE = MergeTree ORDER BY start`)
	if err != nil {
		fmt.Println("Error raised creating table noiseruns ", err)
		db.err = err
	}
}

func (db *Connection) handleConnection(abort <-chan struct{}) {
	defer db.Done()
	for {
		select {
		case <-abort:
			db.Disconnect()
			return
		case rmsg := <-db.runmsg:
			db.handleRunMessage(rmsg)
		}
	}
}

// Disconnect closes the DB connection, if one is open.
func (db *Connection) Disconnect() {
	if db.IsConnected() {
		db.conn.Close()
	}
}

// RecordRun queues a RunMessage for insertion in the DB (if it's open). It
// never blocks; if the queue is momentarily full, the message is dropped.
func (db *Connection) RecordRun(msg *RunMessage) {
	if !db.IsConnected() || msg == nil {
		return
	}
	select {
	case db.runmsg <- msg:
	default:
	}
}

func (db *Connection) handleRunMessage(m *RunMessage) {
	if !db.IsConnected() {
		return
	}
	ctx := context.Background()
	const nowait = false
	formattedStart := m.Start.Format("2006-01-02 15:04:05.000000")
	if err := db.conn.AsyncInsert(ctx, `INSERT INTO noiseruns VALUES (?, ?, ?, ?, ?)`, nowait,
		m.ID, formattedStart, m.Nsamples, m.MeanMV, m.RmsMV,
	); err != nil {
		fmt.Println("Error raised on AsyncInsert into noiseruns ", err)
		db.err = err
	}
}
