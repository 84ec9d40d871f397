// Package report renders clustering reports for humans and machines.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/thebtf/clusterizer/pkg/models"
)

// Format selects the rendering.
type Format string

const (
	// FormatText prints the score, then each cluster's members one per line,
	// clusters separated by a blank line.
	FormatText Format = "text"
	// FormatJSON prints the full report as indented JSON.
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for unsupported formats.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat resolves a format name. The empty string selects text.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Filter returns a copy of r without clusters reporting fewer than minSize
// records. Records collapsed onto one canonical key each count.
// The score is left untouched: it describes the whole partition.
func Filter(r *models.Report, minSize int) *models.Report {
	if minSize <= 1 {
		return r
	}
	out := *r
	out.Clusters = make([]models.Cluster, 0, len(r.Clusters))
	for _, c := range r.Clusters {
		if len(c.Members) >= minSize {
			out.Clusters = append(out.Clusters, c)
		}
	}
	return &out
}

// Write renders r to w.
func Write(w io.Writer, r *models.Report, format Format, minSize int) error {
	r = Filter(r, minSize)
	switch format {
	case FormatText, "":
		return writeText(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
}

func writeText(w io.Writer, r *models.Report) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strconv.FormatFloat(r.Score, 'g', -1, 64))
	bw.WriteByte('\n')
	for _, c := range r.Clusters {
		for _, m := range c.Members {
			bw.WriteString(m)
			bw.WriteByte('\n')
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
