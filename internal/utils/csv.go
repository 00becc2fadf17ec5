package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"cryptoSignalDash/internal/domain"
)

// WriteCandlesToCSV exports a candle series for offline inspection.
func WriteCandlesToCSV(candles []domain.Candle, symbol, interval, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"bucket_start", "symbol", "interval", "open", "high", "low", "close"})

	for _, c := range candles {
		writer.Write([]string{
			c.BucketStart.Format(time.RFC3339),
			symbol,
			interval,
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
		})
	}
	return writer.Error()
}
