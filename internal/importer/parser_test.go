package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseCSV verifies decoding of well-formed row-delimited files.
func TestParseCSV(t *testing.T) {
	t.Parallel()

	input := "Wake Up, 07:00\nGym, 06:30, FREQ=WEEKLY;BYDAY=MO, on\nNap, 14:00, , off\n"

	candidates, rowErrors, err := Parse(strings.NewReader(input), "alarms.csv")
	require.NoError(t, err)
	require.Empty(t, rowErrors)
	require.Len(t, candidates, 3)

	require.Equal(t, "Wake Up", candidates[0].Name)
	require.Equal(t, "07:00", candidates[0].Time)
	require.True(t, candidates[0].Enabled)
	require.Equal(t, 1, candidates[0].Row)

	require.Equal(t, "FREQ=WEEKLY;BYDAY=MO", candidates[1].Recurrence)
	require.True(t, candidates[1].Enabled)

	require.False(t, candidates[2].Enabled)
	require.Equal(t, 3, candidates[2].Row)
}

// TestParseCSVMalformedRows verifies that bad rows are reported without
// aborting the rest of the stream.
func TestParseCSVMalformedRows(t *testing.T) {
	t.Parallel()

	input := "Wake Up, 07:00\nbad-row\n, 08:00\nGym, 25:99\nRun, 06:00\n"

	candidates, rowErrors, err := Parse(strings.NewReader(input), "alarms.csv")
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	require.Equal(t, "Wake Up", candidates[0].Name)
	require.Equal(t, "Run", candidates[1].Name)

	require.Len(t, rowErrors, 3)
	require.Equal(t, 2, rowErrors[0].Row)
	require.Equal(t, 3, rowErrors[1].Row)
	require.Equal(t, 4, rowErrors[2].Row)
}

// TestParseCSVSkipsBlankLines verifies blank lines produce neither
// candidates nor errors, while row numbering still counts them.
func TestParseCSVSkipsBlankLines(t *testing.T) {
	t.Parallel()

	input := "\nWake Up, 07:00\n\nGym, 06:30\n"

	candidates, rowErrors, err := Parse(strings.NewReader(input), "alarms.csv")
	require.NoError(t, err)
	require.Empty(t, rowErrors)
	require.Len(t, candidates, 2)
	require.Equal(t, 2, candidates[0].Row)
	require.Equal(t, 4, candidates[1].Row)
}

// TestParseJSON verifies decoding of JSON import files.
func TestParseJSON(t *testing.T) {
	t.Parallel()

	input := `[
		{"name": "Wake Up", "time": "07:00", "recurrence": "FREQ=DAILY"},
		{"name": "Gym", "time": "06:30", "enabled": false, "source_id": "ext-42"},
		{"name": "", "time": "08:00"},
		{"name": "Nap", "time": "later"}
	]`

	candidates, rowErrors, err := Parse(strings.NewReader(input), "alarms.json")
	require.NoError(t, err)

	require.Len(t, candidates, 2)
	require.Equal(t, "Wake Up", candidates[0].Name)
	require.True(t, candidates[0].Enabled)
	require.Equal(t, "ext-42", candidates[1].SourceID)
	require.False(t, candidates[1].Enabled)

	require.Len(t, rowErrors, 2)
	require.Equal(t, 3, rowErrors[0].Row)
	require.Equal(t, 4, rowErrors[1].Row)
}

// TestParseJSONUndecodable verifies that a file that is not valid JSON is
// reported as a row error, not a hard failure.
func TestParseJSONUndecodable(t *testing.T) {
	t.Parallel()

	candidates, rowErrors, err := Parse(strings.NewReader("{not json"), "alarms.json")
	require.NoError(t, err)
	require.Empty(t, candidates)
	require.Len(t, rowErrors, 1)
	require.Equal(t, 0, rowErrors[0].Row)
}

// TestParseUnsupportedFormat verifies the hard error for unknown extensions.
func TestParseUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, _, err := Parse(strings.NewReader("data"), "alarms.xlsx")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, _, err = Parse(strings.NewReader("data"), "noextension")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
