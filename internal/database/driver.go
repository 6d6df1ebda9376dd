package database

import (
	"database/sql"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/text/cases"
)

// DriverName is the go-sqlite3 driver every application connection uses. It
// adds FoldFunc to each connection it opens.
const DriverName = "sqlite3_library"

// FoldFunc is the SQL name of FoldCase. SQLite's LOWER and LIKE only fold
// ASCII, so case-insensitive text matching goes through this instead.
const FoldFunc = "fold_case"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(FoldFunc, FoldCase, true)
		},
	})
}

// FoldCase applies Unicode case folding, so "ÉTUDES" and "études" (or
// "STRASSE" and "straße") fold to the same string.
func FoldCase(s string) string {
	// A Caser keeps state between calls; one per call keeps this safe for
	// concurrent connections.
	return cases.Fold().String(s)
}
