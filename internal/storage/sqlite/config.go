package sqlite

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a file path or a driver URI, e.g. "out.db" or
	// "file:out.db?_pragma=journal_mode(WAL)".
	DSN string

	// Table is the target table. "main.events" style names are accepted.
	Table string
}
