package krypto

import (
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/tantralabs/krypto/models"
)

// Report file names inside the report directory.
const (
	SummaryFile     = "generations.csv"
	TradeLogFile    = "trades.csv"
	EquityCurveFile = "equity.csv"
)

func writeCSV(path string, in interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(in, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// appendCSV adds rows to path, writing the header only when the file is new or empty.
func appendCSV(path string, rows interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if info.Size() == 0 {
		err = gocsv.MarshalFile(rows, f)
	} else {
		err = gocsv.MarshalWithoutHeaders(rows, f)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteSummary writes one row per generation.
func WriteSummary(dir string, history []models.GenerationSnapshot) error {
	return writeCSV(filepath.Join(dir, SummaryFile), &history)
}

// WriteTradeLog writes the closes of every fold of an individual in fold order.
func WriteTradeLog(dir string, ind models.Individual) error {
	trades := []models.TradeLogEntry{}
	for _, f := range ind.Folds {
		trades = append(trades, f.TradeLog...)
	}
	return writeCSV(filepath.Join(dir, TradeLogFile), &trades)
}

// WriteEquityCurve writes the equity points of every fold of an individual in fold order.
func WriteEquityCurve(dir string, ind models.Individual) error {
	points := []models.EquityPoint{}
	for _, f := range ind.Folds {
		points = append(points, f.EquityCurve...)
	}
	return writeCSV(filepath.Join(dir, EquityCurveFile), &points)
}

// WriteReports writes the summary and the best individual's trade log and equity curve.
func WriteReports(dir string, history []models.GenerationSnapshot, best models.Individual) error {
	if err := WriteSummary(dir, history); err != nil {
		return err
	}
	if err := WriteTradeLog(dir, best); err != nil {
		return err
	}
	return WriteEquityCurve(dir, best)
}
