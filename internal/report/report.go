// Package report hands finished tables to whatever renders them: CSV for
// the chart renderer, aligned text for a terminal.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"mlbstats/internal/table"
)

// Format selects the output encoding.
type Format string

const (
	Text Format = "text"
	CSV  Format = "csv"
)

// ParseFormat accepts "text" or "csv", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case Text, CSV:
		return f, nil
	default:
		return "", fmt.Errorf("report: unknown format %q (want text or csv)", s)
	}
}

// Ext is the file extension for f.
func (f Format) Ext() string {
	if f == CSV {
		return ".csv"
	}
	return ".txt"
}

// Write encodes t to w. CSV keeps full precision; text rounds floats to
// three decimals.
func Write(w io.Writer, t *table.Table, f Format) error {
	switch f {
	case CSV:
		return writeCSV(w, t)
	case Text:
		return writeText(w, t)
	default:
		return fmt.Errorf("report: unknown format %q", f)
	}
}

func writeCSV(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}
	rec := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j := range rec {
			rec[j] = t.Cell(i, j).String()
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("report: write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("report: flush: %w", err)
	}
	return nil
}

func writeText(w io.Writer, t *table.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(t.Names(), "\t")+"\t")
	rec := make([]string, t.NumCols())
	for i := 0; i < t.NumRows(); i++ {
		for j := range rec {
			rec[j] = textCell(t.Cell(i, j))
		}
		fmt.Fprintln(tw, strings.Join(rec, "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("report: flush: %w", err)
	}
	return nil
}

func textCell(c table.Cell) string {
	switch c.Type() {
	case table.TypeNull:
		return "-"
	case table.TypeFloat:
		f, _ := c.Float()
		return strconv.FormatFloat(f, 'f', 3, 64)
	default:
		return c.String()
	}
}

// WriteFile writes t to dir/name plus the format's extension, creating dir
// if needed, and returns the path.
func WriteFile(dir, name string, t *table.Table, f Format) (path string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create %s: %w", dir, err)
	}
	path = filepath.Join(dir, name+f.Ext())
	fh, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create %s: %w", path, err)
	}
	defer func() {
		if cerr := fh.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("report: close %s: %w", path, cerr)
		}
	}()
	if err := Write(fh, t, f); err != nil {
		return "", err
	}
	return path, nil
}
