package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forceu/uploadrelay/internal/helper"
	"github.com/forceu/uploadrelay/internal/models"
	// Required for sqlite driver
	_ "modernc.org/sqlite"
)

const kindCancel = "cancel"
const kindOutcome = "outcome"

// SignalProvider contains the database instance
type SignalProvider struct {
	sqliteDb *sql.DB
}

// New returns an instance and creates the table structure, if necessary
func New(config models.SignalConnection) (SignalProvider, error) {
	if config.Path == "" {
		return SignalProvider{}, errors.New("empty database path was provided")
	}
	cleanPath := filepath.Clean(config.Path)
	dataDir := filepath.Dir(cleanPath)
	if !helper.FolderExists(dataDir) {
		err := os.MkdirAll(dataDir, 0700)
		if err != nil {
			return SignalProvider{}, err
		}
	}
	db, err := sql.Open("sqlite", cleanPath+"?_pragma=busy_timeout=10000&_pragma=journal_mode=WAL")
	if err != nil {
		return SignalProvider{}, err
	}
	p := SignalProvider{sqliteDb: db}
	err = p.createTables()
	if err != nil {
		_ = db.Close()
		return SignalProvider{}, err
	}
	return p, nil
}

func (p SignalProvider) createTables() error {
	_, err := p.sqliteDb.Exec(`CREATE TABLE IF NOT EXISTS "Signals" (
			"SessionId"	TEXT NOT NULL,
			"Kind"	TEXT NOT NULL,
			"Value"	TEXT NOT NULL,
			"CreationDate"	INTEGER NOT NULL,
			PRIMARY KEY("SessionId","Kind")
		) WITHOUT ROWID;`)
	return err
}

// GetType returns 2, for being a Sqlite provider
func (p SignalProvider) GetType() int {
	return 2 // signalstore.TypeSqlite
}

// RequestCancel creates the cancellation marker. INSERT OR IGNORE makes sure only one marker is created
func (p SignalProvider) RequestCancel(sessionId string) (bool, error) {
	now := time.Now().Unix()
	result, err := p.sqliteDb.Exec(`INSERT OR IGNORE INTO Signals (SessionId, Kind, Value, CreationDate) VALUES (?, ?, ?, ?)`,
		sessionId, kindCancel, fmt.Sprint(now), now)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// IsCancelled returns true if a cancellation marker exists
func (p SignalProvider) IsCancelled(sessionId string) (bool, error) {
	_, ok, err := p.getValue(sessionId, kindCancel)
	return ok, err
}

// SaveOutcome stores the terminal status reported by the worker
func (p SignalProvider) SaveOutcome(sessionId string, status models.SessionStatus) error {
	_, err := p.sqliteDb.Exec(`INSERT OR REPLACE INTO Signals (SessionId, Kind, Value, CreationDate) VALUES (?, ?, ?, ?)`,
		sessionId, kindOutcome, string(status), time.Now().Unix())
	return err
}

// GetOutcome returns the terminal status reported by the worker or false if none was saved yet
func (p SignalProvider) GetOutcome(sessionId string) (models.SessionStatus, bool, error) {
	value, ok, err := p.getValue(sessionId, kindOutcome)
	return models.SessionStatus(value), ok, err
}

func (p SignalProvider) getValue(sessionId, kind string) (string, bool, error) {
	var value string
	row := p.sqliteDb.QueryRow("SELECT Value FROM Signals WHERE SessionId = ? AND Kind = ?", sessionId, kind)
	err := row.Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Purge deletes all markers of a session
func (p SignalProvider) Purge(sessionId string) error {
	_, err := p.sqliteDb.Exec("DELETE FROM Signals WHERE SessionId = ?", sessionId)
	return err
}

// PurgeOlderThan deletes all markers created before now - age
func (p SignalProvider) PurgeOlderThan(age time.Duration) error {
	_, err := p.sqliteDb.Exec("DELETE FROM Signals WHERE CreationDate < ?", time.Now().Add(-age).Unix())
	return err
}

// Close the database connection
func (p SignalProvider) Close() {
	if p.sqliteDb != nil {
		err := p.sqliteDb.Close()
		if err != nil {
			fmt.Println(err)
		}
	}
}

func (p SignalProvider) rawSqlite(statement string) error {
	_, err := p.sqliteDb.Exec(statement)
	return err
}
