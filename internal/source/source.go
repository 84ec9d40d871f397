// Package source reads raw text records from files, databases and Redis.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrUnsupportedSource is returned for URIs with an unknown scheme.
	ErrUnsupportedSource = errors.New("unsupported source")

	// ErrMissingQuery is returned when a SQL source has no query configured.
	ErrMissingQuery = errors.New("sql source requires a query")

	// ErrMissingKey is returned when a Redis source has no list key configured.
	ErrMissingKey = errors.New("redis source requires a list key")
)

// Reader yields records in source order.
type Reader interface {
	Read(ctx context.Context) ([]string, error)
}

// Options tune how records are read.
type Options struct {
	// Query is the SELECT used by SQL sources. The first column of each row is a record.
	Query string
	// Key is the Redis list holding records.
	Key string
	// SkipBlank drops records that are empty after trimming.
	SkipBlank bool
}

// Open returns a Reader for uri. Plain paths, file:// URIs and "-" (stdin) read
// lines; sqlite://, postgres:// and redis:// read from the respective stores.
func Open(uri string, opts Options) (Reader, error) {
	if uri == "" || uri == "-" {
		return &FileReader{Path: "-", SkipBlank: opts.SkipBlank}, nil
	}

	scheme, rest, found := strings.Cut(uri, "://")
	if !found {
		return &FileReader{Path: uri, SkipBlank: opts.SkipBlank}, nil
	}

	switch strings.ToLower(scheme) {
	case "file":
		return &FileReader{Path: rest, SkipBlank: opts.SkipBlank}, nil
	case "sqlite", "sqlite3":
		if opts.Query == "" {
			return nil, ErrMissingQuery
		}
		return &SQLReader{Driver: "sqlite", DSN: rest, Query: opts.Query, SkipBlank: opts.SkipBlank}, nil
	case "postgres", "postgresql":
		if opts.Query == "" {
			return nil, ErrMissingQuery
		}
		return &SQLReader{Driver: "pgx", DSN: uri, Query: opts.Query, SkipBlank: opts.SkipBlank}, nil
	case "redis", "rediss":
		key := opts.Key
		if key == "" {
			if u, err := url.Parse(uri); err == nil {
				key = u.Query().Get("key")
			}
		}
		if key == "" {
			return nil, ErrMissingKey
		}
		return &RedisReader{URL: stripQuery(uri), Key: key, SkipBlank: opts.SkipBlank}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, scheme)
	}
}

// clean trims records and optionally drops blank ones.
func clean(records []string, skipBlank bool) []string {
	out := records[:0]
	for _, r := range records {
		r = strings.TrimSpace(r)
		if skipBlank && r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

func stripQuery(uri string) string {
	base, _, _ := strings.Cut(uri, "?")
	return base
}
