package data

import (
	"os"

	"github.com/gocarina/gocsv"
	"github.com/tantralabs/krypto/models"
)

// LoadCandles reads candles from a CSV file with open_time, close_time, open, high, low, close
// and volume columns.
func LoadCandles(csvFile string) ([]models.Candle, error) {
	dataFile, err := os.Open(csvFile)
	if err != nil {
		return nil, models.AsDataError("data.LoadCandles", err)
	}
	defer dataFile.Close()

	candles := []models.Candle{}
	if err := gocsv.UnmarshalFile(dataFile, &candles); err != nil {
		return nil, models.AsDataError("data.LoadCandles", err)
	}
	return candles, nil
}

// SaveCandles writes candles in the format LoadCandles reads.
func SaveCandles(csvFile string, candles []models.Candle) error {
	f, err := os.Create(csvFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(&candles, f)
}
