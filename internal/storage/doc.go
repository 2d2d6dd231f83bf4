// Package storage persists push records, the write-once-per-day markers used
// by the push window's once-per-day check.
//
// Drivers:
//   - "memory": process-local, lost on restart (default)
//   - "file":   one small JSON file per record, created with O_EXCL
//   - "sqlite": embedded SQLite database (modernc.org/sqlite, no cgo)
//   - "postgres": shared PostgreSQL database (github.com/lib/pq)
//
// Every driver implements RecordPush as an atomic exists-or-create on the
// (report type, day) key, so concurrent runs cannot double-write.
package storage
