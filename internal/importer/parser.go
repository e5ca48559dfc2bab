// Package importer implements bulk alarm import: decoding uploaded files
// into candidate records and merging them into a user's existing alarms.
package importer

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupportedFormat is returned when a filename's extension maps to no
// known decoder.
var ErrUnsupportedFormat = errors.New("unsupported import format")

// Candidate is one alarm parsed from an uploaded file. Candidates have no
// persistent identity until the import is committed.
type Candidate struct {
	Name       string
	Time       string // Format: "15:04"
	Recurrence string
	Enabled    bool
	SourceID   string
	Row        int
}

// RowParseError describes a single malformed row. Row failures never abort
// the rest of the stream.
type RowParseError struct {
	Row    int
	Reason string
}

func (e RowParseError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Parse decodes an uploaded file into candidates. The filename is used only
// to select a decoder by extension (.csv or .json). Malformed rows are
// collected into the returned error list; a non-nil error is returned only
// for unsupported formats or an unreadable stream.
func Parse(r io.Reader, filename string) ([]Candidate, []RowParseError, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(r)
	case ".json":
		return parseJSON(r)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// parseCSV reads row-delimited candidates: "name, HH:MM[, recurrence[, on|off]]".
// Blank lines are skipped. Row numbers are 1-based over all lines.
func parseCSV(r io.Reader) ([]Candidate, []RowParseError, error) {
	var candidates []Candidate
	var rowErrors []RowParseError

	scanner := bufio.NewScanner(r)
	row := 0
	for scanner.Scan() {
		row++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		candidate, err := parseCSVRow(line, row)
		if err != nil {
			rowErrors = append(rowErrors, RowParseError{Row: row, Reason: err.Error()})
			continue
		}
		candidates = append(candidates, candidate)
	}

	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading import file: %w", err)
	}

	return candidates, rowErrors, nil
}

func parseCSVRow(line string, row int) (Candidate, error) {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	if len(fields) < 2 {
		return Candidate{}, fmt.Errorf("expected at least name and time, got %d field(s)", len(fields))
	}

	candidate := Candidate{
		Name:    fields[0],
		Time:    fields[1],
		Enabled: true,
		Row:     row,
	}

	if candidate.Name == "" {
		return Candidate{}, errors.New("alarm name is empty")
	}
	if _, err := time.Parse("15:04", candidate.Time); err != nil {
		return Candidate{}, fmt.Errorf("invalid time %q (want HH:MM)", candidate.Time)
	}

	if len(fields) > 2 {
		candidate.Recurrence = fields[2]
	}
	if len(fields) > 3 {
		switch strings.ToLower(fields[3]) {
		case "on":
			candidate.Enabled = true
		case "off":
			candidate.Enabled = false
		default:
			return Candidate{}, fmt.Errorf("invalid enabled flag %q (want on or off)", fields[3])
		}
	}

	return candidate, nil
}

// jsonCandidate is the wire shape of one candidate in a .json import file.
type jsonCandidate struct {
	Name       string `json:"name"`
	Time       string `json:"time"`
	Recurrence string `json:"recurrence,omitempty"`
	Enabled    *bool  `json:"enabled,omitempty"`
	SourceID   string `json:"source_id,omitempty"`
}

// parseJSON reads a JSON array of candidate objects. Row numbers are
// 1-based array indices. A file that does not decode at all is reported as
// a single row error, not a hard failure.
func parseJSON(r io.Reader) ([]Candidate, []RowParseError, error) {
	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading import file: %w", err)
	}

	var raw []jsonCandidate
	if err := json.Unmarshal(contents, &raw); err != nil {
		return nil, []RowParseError{{Row: 0, Reason: fmt.Sprintf("decoding JSON: %v", err)}}, nil
	}

	var candidates []Candidate
	var rowErrors []RowParseError
	for i, rc := range raw {
		row := i + 1

		if rc.Name == "" {
			rowErrors = append(rowErrors, RowParseError{Row: row, Reason: "alarm name is empty"})
			continue
		}
		if _, err := time.Parse("15:04", rc.Time); err != nil {
			rowErrors = append(rowErrors, RowParseError{Row: row, Reason: fmt.Sprintf("invalid time %q (want HH:MM)", rc.Time)})
			continue
		}

		enabled := true
		if rc.Enabled != nil {
			enabled = *rc.Enabled
		}

		candidates = append(candidates, Candidate{
			Name:       rc.Name,
			Time:       rc.Time,
			Recurrence: rc.Recurrence,
			Enabled:    enabled,
			SourceID:   rc.SourceID,
			Row:        row,
		})
	}

	return candidates, rowErrors, nil
}
