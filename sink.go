package krypto

import (
	"os"
	"strings"
	"time"

	"github.com/fatih/structs"
	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/tantralabs/krypto/logger"
	"github.com/tantralabs/krypto/models"
)

// InfluxConfig points the sink at an InfluxDB 1.x server.
type InfluxConfig struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"krypto"`
}

// InfluxConfigFromEnv reads KRYPTO_INFLUX_URL, KRYPTO_INFLUX_USER and KRYPTO_INFLUX_PASSWORD.
func InfluxConfigFromEnv() InfluxConfig {
	return InfluxConfig{
		URL:      os.Getenv("KRYPTO_INFLUX_URL"),
		User:     os.Getenv("KRYPTO_INFLUX_USER"),
		Password: os.Getenv("KRYPTO_INFLUX_PASSWORD"),
		Database: "krypto",
	}
}

// InfluxSink writes generations, trades and equity points as influx measurements.
// Write failures are logged and dropped.
type InfluxSink struct {
	influx   client.Client
	database string
	tags     map[string]string
}

// NewInfluxSink returns nil when no URL is configured.
func NewInfluxSink(cfg InfluxConfig, runID string, stateType string) (*InfluxSink, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	influx, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:     cfg.URL,
		Username: cfg.User,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, &models.ExternalSourceError{Source: "influx", Err: err}
	}
	database := cfg.Database
	if database == "" {
		database = "krypto"
	}
	return &InfluxSink{
		influx:   influx,
		database: database,
		tags:     map[string]string{"run_id": runID, "state_type": stateType},
	}, nil
}

func (s *InfluxSink) write(measurement string, extra map[string]string, fields map[string]interface{}, at time.Time) {
	if s == nil {
		return
	}
	bp, _ := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  s.database,
		Precision: "us",
	})
	tags := make(map[string]string, len(s.tags)+len(extra))
	for k, v := range s.tags {
		tags[k] = v
	}
	for k, v := range extra {
		tags[k] = v
	}
	pt, err := client.NewPoint(measurement, tags, fields, at)
	if err != nil {
		logger.Debugf("influx point %s: %v", measurement, err)
		return
	}
	bp.AddPoint(pt)
	if err := s.influx.Write(bp); err != nil {
		logger.Debugf("influx write %s: %v", measurement, err)
	}
}

// Snapshot records one generation.
func (s *InfluxSink) Snapshot(snap models.GenerationSnapshot) {
	fields := structs.Map(snap)
	delete(fields, "Timestamp")
	s.write("generations", nil, fields, snap.Timestamp)
}

// Trade records one closed position.
func (s *InfluxSink) Trade(entry models.TradeLogEntry) {
	fields := structs.Map(entry)
	fields["Reason"] = string(entry.Reason)
	s.write("trades", map[string]string{"symbol": entry.Symbol, "side": strings.ToLower(entry.Side)}, fields, time.UnixMilli(entry.Timestamp))
}

// Equity records one equity point.
func (s *InfluxSink) Equity(symbol string, point models.EquityPoint) {
	s.write("equity", map[string]string{"symbol": symbol}, structs.Map(point), time.UnixMilli(point.Timestamp))
}

func (s *InfluxSink) Close() error {
	if s == nil {
		return nil
	}
	return s.influx.Close()
}
