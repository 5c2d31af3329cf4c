// Package sqlite implements store.Store on an embedded SQLite database
// via database/sql and mattn/go-sqlite3. This is the production backend:
// one file under data/queue.sqlite, WAL journaling, foreign keys on.
//
//	s, err := sqlite.Open(ctx, "data/queue.sqlite")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
// Timestamps are stored as fixed-width ISO-8601 UTC strings, so SQL
// string comparison is chronological comparison. All state transitions
// are single statements; the pending→processing claim is a conditional
// UPDATE whose affected-row count arbitrates worker races.
package sqlite
