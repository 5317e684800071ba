package barfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rangebot-go/internal/signal"
	"rangebot-go/internal/strategy"
)

func sampleBars() []signal.Bar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return []signal.Bar{
		{Ts: start, Open: 100, High: 101, Low: 99.5, Close: 100.25, Volume: 12},
		{Ts: start.Add(15 * time.Minute), Open: 100.25, High: 102, Low: 100, Close: 101.75, Volume: 8.5},
	}
}

func TestNewCodec(t *testing.T) {
	for _, format := range []string{"csv", "JSON", " parquet "} {
		c := NewCodec(format)
		require.NotNil(t, c, format)
		assert.Equal(t, strings.ToLower(strings.TrimSpace(format)), c.Extension())
	}
	assert.Nil(t, NewCodec("xlsx"))

	_, err := ForPath("bars.xlsx")
	assert.Error(t, err)
	c, err := ForPath("signals.jsonl")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, c.Extension())
}

func TestBarsSurviveEveryFormat(t *testing.T) {
	dir := t.TempDir()
	for _, format := range []string{FormatCSV, FormatJSON, FormatParquet} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(dir, "bars."+format)
			require.NoError(t, NewCodec(format).WriteBars(path, sampleBars()))

			got, err := ReadBars(path)
			require.NoError(t, err)
			require.Len(t, got, 2)
			for i, want := range sampleBars() {
				assert.True(t, want.Ts.Equal(got[i].Ts), "ts %d", i)
				assert.Equal(t, want.Close, got[i].Close)
				assert.Equal(t, want.Volume, got[i].Volume)
			}
		})
	}
}

func TestCSVReadsLongHeadersAndTimestampStyles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.csv")
	body := strings.Join([]string{
		"Timestamp,Open,High,Low,Close,Volume",
		"1704153600,100,101,99,100.5,3",
		"1704154500000,100.5,102,100,101,4",
		"2024-01-02T00:30:00Z,101,101.5,100.5,101.2,5",
		"2024-01-02 00:45:00,101.2,101.4,100.9,101,6",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	bars, err := CSV{}.ReadBars(path)
	require.NoError(t, err)
	require.Len(t, bars, 4)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, b := range bars {
		assert.True(t, start.Add(time.Duration(i)*15*time.Minute).Equal(b.Ts), "bar %d ts %s", i, b.Ts)
	}
	assert.Equal(t, 6.0, bars[3].Volume)
}

func TestCSVRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing_col.csv")
	require.NoError(t, os.WriteFile(missing, []byte("t,o,h,l\n1,1,1,1\n"), 0o644))
	_, err := CSV{}.ReadBars(missing)
	assert.ErrorContains(t, err, `"c"`)

	badTs := filepath.Join(dir, "bad_ts.csv")
	require.NoError(t, os.WriteFile(badTs, []byte("t,o,h,l,c\nyesterday,1,1,1,1\n"), 0o644))
	_, err = CSV{}.ReadBars(badTs)
	assert.ErrorContains(t, err, "line 2")

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	bars, err := CSV{}.ReadBars(empty)
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestJSONReadsNewlineDelimited(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.jsonl")
	var lines []string
	for _, b := range sampleBars() {
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		lines = append(lines, string(raw))
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))

	bars, err := ReadBars(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 101.75, bars[1].Close)
}

func TestWriteRows(t *testing.T) {
	ts := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	rows := []strategy.Row{
		{Ts: ts, Close: 100, Raw: signal.Hold, Final: signal.Hold},
		{Ts: ts.Add(15 * time.Minute), Close: 103, Upper: 101, Lower: 99, HasRange: true, ATR: 1.5, HasATR: true, Raw: signal.Buy, Final: signal.Buy},
	}
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "report.csv")
	require.NoError(t, CSV{}.WriteRows(csvPath, rows))
	raw, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ts,close,upper,lower,atr,raw,signal", lines[0])
	assert.Equal(t, "2024-01-02T00:00:00Z,100,,,,0,0", lines[1])
	assert.Equal(t, "2024-01-02T00:15:00Z,103,101,99,1.5,1,1", lines[2])

	jsonPath := filepath.Join(dir, "report.json")
	require.NoError(t, JSON{}.WriteRows(jsonPath, rows))
	raw, err = os.ReadFile(jsonPath)
	require.NoError(t, err)
	var recs []rowRecord
	require.NoError(t, json.Unmarshal(raw, &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, int32(1), recs[1].Signal)
	assert.False(t, recs[0].HasRange)

	require.NoError(t, Parquet{}.WriteRows(filepath.Join(dir, "report.parquet"), rows))
}

func TestWritersReportFlushErrors(t *testing.T) {
	// every write to /dev/full fails with ENOSPC, which only surfaces on flush
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	bars := sampleBars()
	rows := []strategy.Row{{Ts: bars[0].Ts, Close: bars[0].Close}}

	assert.Error(t, JSON{}.WriteBars("/dev/full", bars))
	assert.Error(t, JSON{}.WriteRows("/dev/full", rows))
	assert.Error(t, CSV{}.WriteBars("/dev/full", bars))
	assert.Error(t, CSV{}.WriteRows("/dev/full", rows))
}
