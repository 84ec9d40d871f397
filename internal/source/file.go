package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// maxLineBytes bounds a single record line.
const maxLineBytes = 1 << 20

// FileReader reads one record per line. Path "-" reads stdin.
type FileReader struct {
	Stdin     io.Reader
	Path      string
	SkipBlank bool
}

// Read returns the trimmed lines of the file.
func (f *FileReader) Read(ctx context.Context) ([]string, error) {
	var r io.Reader
	if f.Path == "-" {
		r = f.Stdin
		if r == nil {
			r = os.Stdin
		}
	} else {
		file, err := os.Open(f.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Path, err)
		}
		defer file.Close()
		r = file
	}

	records, err := ReadLines(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	return clean(records, f.SkipBlank), nil
}

// ReadLines splits r into lines, checking ctx between lines.
func ReadLines(ctx context.Context, r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
