package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// SQLReader runs Query and reads the first column of every row as a record.
type SQLReader struct {
	Driver    string
	DSN       string
	Query     string
	SkipBlank bool
}

// Read opens the database, runs the query and closes the connection.
func (s *SQLReader) Read(ctx context.Context) ([]string, error) {
	db, err := sql.Open(s.Driver, s.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return QueryRecords(ctx, db, s.Query, s.SkipBlank)
}

// QueryRecords reads the first column of every row returned by query.
// NULLs are read as empty records.
func QueryRecords(ctx context.Context, db *sql.DB, query string, skipBlank bool) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("query records: no columns returned")
	}

	var records []string
	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(sql.RawBytes)
	}
	for rows.Next() {
		var text sql.NullString
		dest[0] = &text
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, text.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return clean(records, skipBlank), nil
}
