// Package barfile reads bar history from disk and writes per-bar analysis reports as CSV,
// JSON or Parquet.
package barfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"rangebot-go/internal/signal"
	"rangebot-go/internal/strategy"
)

// Supported formats.
const (
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatParquet = "parquet"
)

// Codec is one on-disk format.
type Codec interface {
	Extension() string
	ReadBars(path string) ([]signal.Bar, error)
	WriteBars(path string, bars []signal.Bar) error
	WriteRows(path string, rows []strategy.Row) error
}

// NewCodec returns the codec for format (csv, json, parquet), or nil if unsupported.
func NewCodec(format string) Codec {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatCSV:
		return CSV{}
	case FormatJSON:
		return JSON{}
	case FormatParquet:
		return Parquet{}
	default:
		return nil
	}
}

// ForPath picks the codec from the file extension.
func ForPath(path string) (Codec, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "jsonl" || ext == "ndjson" {
		ext = FormatJSON
	}
	c := NewCodec(ext)
	if c == nil {
		return nil, fmt.Errorf("barfile: unsupported extension %q (use csv, json, parquet)", filepath.Ext(path))
	}
	return c, nil
}

// ReadBars loads bars from path using the codec matching its extension.
func ReadBars(path string) ([]signal.Bar, error) {
	c, err := ForPath(path)
	if err != nil {
		return nil, err
	}
	bars, err := c.ReadBars(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return bars, nil
}

// barRecord is the columnar layout shared by CSV and Parquet. Timestamps are unix millis.
type barRecord struct {
	Timestamp int64   `parquet:"t"`
	Open      float64 `parquet:"o"`
	High      float64 `parquet:"h"`
	Low       float64 `parquet:"l"`
	Close     float64 `parquet:"c"`
	Volume    float64 `parquet:"v"`
}

func toRecord(b signal.Bar) barRecord {
	return barRecord{
		Timestamp: b.Ts.UnixMilli(),
		Open:      b.Open,
		High:      b.High,
		Low:       b.Low,
		Close:     b.Close,
		Volume:    b.Volume,
	}
}

func (r barRecord) bar() signal.Bar {
	return signal.Bar{
		Ts:     time.UnixMilli(r.Timestamp).UTC(),
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close,
		Volume: r.Volume,
	}
}

// rowRecord is one line of an analysis report. Undefined range/atr values are zero with
// the matching flag unset.
type rowRecord struct {
	Timestamp int64   `json:"t" parquet:"t"`
	Close     float64 `json:"close" parquet:"close"`
	Upper     float64 `json:"upper" parquet:"upper"`
	Lower     float64 `json:"lower" parquet:"lower"`
	HasRange  bool    `json:"has_range" parquet:"has_range"`
	ATR       float64 `json:"atr" parquet:"atr"`
	HasATR    bool    `json:"has_atr" parquet:"has_atr"`
	Raw       int32   `json:"raw" parquet:"raw"`
	Signal    int32   `json:"signal" parquet:"signal"`
}

func toRowRecord(r strategy.Row) rowRecord {
	return rowRecord{
		Timestamp: r.Ts.UnixMilli(),
		Close:     r.Close,
		Upper:     r.Upper,
		Lower:     r.Lower,
		HasRange:  r.HasRange,
		ATR:       r.ATR,
		HasATR:    r.HasATR,
		Raw:       int32(r.Raw),
		Signal:    int32(r.Final),
	}
}

// writeFile creates path and hands write a buffered writer. Flush and close errors are
// returned so a short write never passes silently.
func writeFile(path string, write func(w io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}
