package barfile

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"rangebot-go/internal/signal"
	"rangebot-go/internal/strategy"
)

// JSON stores an indented array. On read a newline-delimited stream of bar objects works too.
type JSON struct{}

func (JSON) Extension() string { return FormatJSON }

func (JSON) ReadBars(path string) ([]signal.Bar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var bars []signal.Bar
	if data[0] == '[' {
		if err := json.Unmarshal(data, &bars); err != nil {
			return nil, err
		}
		return bars, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var b signal.Bar
		if err := dec.Decode(&b); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func (JSON) WriteBars(path string, bars []signal.Bar) error {
	return writeJSON(path, bars)
}

func (JSON) WriteRows(path string, rows []strategy.Row) error {
	out := make([]rowRecord, len(rows))
	for i, r := range rows {
		out[i] = toRowRecord(r)
	}
	return writeJSON(path, out)
}

func writeJSON(path string, v any) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}
