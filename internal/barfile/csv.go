package barfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"rangebot-go/internal/signal"
	"rangebot-go/internal/strategy"
)

// CSV stores bars with header t,o,h,l,c,v. On read the common long names (timestamp, open,
// high, ...) are accepted too, and timestamps may be unix seconds, unix millis or RFC 3339.
type CSV struct{}

func (CSV) Extension() string { return FormatCSV }

var csvAliases = map[string]string{
	"t": "t", "ts": "t", "time": "t", "timestamp": "t", "date": "t", "datetime": "t", "open_time": "t",
	"o": "o", "open": "o",
	"h": "h", "high": "h",
	"l": "l", "low": "l",
	"c": "c", "close": "c",
	"v": "v", "volume": "v",
}

func (CSV) ReadBars(path string) ([]signal.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	col := map[string]int{}
	for i, name := range header {
		if key, ok := csvAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
			if _, dup := col[key]; !dup {
				col[key] = i
			}
		}
	}
	for _, key := range []string{"t", "o", "h", "l", "c"} {
		if _, ok := col[key]; !ok {
			return nil, fmt.Errorf("csv header missing %q column", key)
		}
	}

	var bars []signal.Bar
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		bar, err := parseCSVRecord(rec, col)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseCSVRecord(rec []string, col map[string]int) (signal.Bar, error) {
	var bar signal.Bar
	ts, err := parseTimestamp(rec[col["t"]])
	if err != nil {
		return bar, err
	}
	bar.Ts = ts
	fields := []struct {
		key string
		dst *float64
	}{
		{"o", &bar.Open}, {"h", &bar.High}, {"l", &bar.Low}, {"c", &bar.Close}, {"v", &bar.Volume},
	}
	for _, fl := range fields {
		i, ok := col[fl.key]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
		if err != nil {
			return bar, fmt.Errorf("column %s: %w", fl.key, err)
		}
		*fl.dst = v
	}
	return bar, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// anything past 1e11 seconds is year 5000+, so it must be millis
		if n > 1e11 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

func (CSV) WriteBars(path string, bars []signal.Bar) error {
	return writeFile(path, func(out io.Writer) error {
		w := csv.NewWriter(out)

		if err := w.Write([]string{"t", "o", "h", "l", "c", "v"}); err != nil {
			return err
		}
		for _, b := range bars {
			r := toRecord(b)
			if err := w.Write([]string{
				strconv.FormatInt(r.Timestamp, 10),
				floatStr(r.Open),
				floatStr(r.High),
				floatStr(r.Low),
				floatStr(r.Close),
				floatStr(r.Volume),
			}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

func (CSV) WriteRows(path string, rows []strategy.Row) error {
	return writeFile(path, func(out io.Writer) error {
		w := csv.NewWriter(out)

		if err := w.Write([]string{"ts", "close", "upper", "lower", "atr", "raw", "signal"}); err != nil {
			return err
		}
		for _, row := range rows {
			upper, lower, atr := "", "", ""
			if row.HasRange {
				upper, lower = floatStr(row.Upper), floatStr(row.Lower)
			}
			if row.HasATR {
				atr = floatStr(row.ATR)
			}
			if err := w.Write([]string{
				row.Ts.UTC().Format(time.RFC3339),
				floatStr(row.Close),
				upper,
				lower,
				atr,
				strconv.Itoa(int(row.Raw)),
				strconv.Itoa(int(row.Final)),
			}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
