package barfile

import (
	"github.com/parquet-go/parquet-go"

	"rangebot-go/internal/signal"
	"rangebot-go/internal/strategy"
)

// Parquet stores bars and reports as flat Parquet files.
type Parquet struct{}

func (Parquet) Extension() string { return FormatParquet }

func (Parquet) ReadBars(path string) ([]signal.Bar, error) {
	recs, err := parquet.ReadFile[barRecord](path)
	if err != nil {
		return nil, err
	}
	bars := make([]signal.Bar, len(recs))
	for i, r := range recs {
		bars[i] = r.bar()
	}
	return bars, nil
}

func (Parquet) WriteBars(path string, bars []signal.Bar) error {
	recs := make([]barRecord, len(bars))
	for i, b := range bars {
		recs[i] = toRecord(b)
	}
	return parquet.WriteFile(path, recs)
}

func (Parquet) WriteRows(path string, rows []strategy.Row) error {
	recs := make([]rowRecord, len(rows))
	for i, r := range rows {
		recs[i] = toRowRecord(r)
	}
	return parquet.WriteFile(path, recs)
}
