package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrDisabled = errors.New("storage disabled")
	ErrBadKey   = errors.New("storage: report type and day are required")
)

// DayLayout formats the day part of a record key. Lexical order equals
// chronological order.
const DayLayout = "2006-01-02"

// Config configures storage.
//
// Driver values: "memory" (or empty), "file", "sqlite", "postgres", "none".
// "none" disables storage and Open returns (nil, nil).
type Config struct {
	Driver string
	// Path is the directory for "file" and the database file for "sqlite".
	Path string
	// DSN is the connection string for "postgres".
	DSN         string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// PushRecord marks that a report type was pushed on a local calendar day.
type PushRecord struct {
	ReportType string    `json:"report_type"`
	Day        string    `json:"day"`
	PushedAt   time.Time `json:"pushed_at"`
}

// Store is the persistence API used by the push window gate.
type Store interface {
	// HasPushed reports whether a record exists for (reportType, day).
	HasPushed(ctx context.Context, reportType, day string) (bool, error)
	// RecordPush creates the record if it does not exist yet. created is
	// false when a record was already present; the existing one is kept.
	RecordPush(ctx context.Context, rec PushRecord) (created bool, err error)
	// Prune deletes records whose day is before the given day.
	Prune(ctx context.Context, before string) (removed int, err error)
	Close() error
}

func validKey(reportType, day string) error {
	if reportType == "" || day == "" {
		return ErrBadKey
	}
	return nil
}
