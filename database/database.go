// Package database stores candles in Postgres.
package database

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/tantralabs/krypto/logger"
	"github.com/tantralabs/krypto/models"
)

// Config locates the database.
type Config struct {
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"5432"`
	User     string `yaml:"user" default:"krypto"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname" default:"krypto"`
	SSLMode  string `yaml:"sslmode" default:"disable"`
	Exchange string `yaml:"exchange" default:"binance"`
}

// DSN is the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ConfigFromEnv overrides c with KRYPTO_DB_HOST, KRYPTO_DB_PORT, KRYPTO_DB_USER,
// KRYPTO_DB_PASSWORD and KRYPTO_DB_NAME when they are set.
func ConfigFromEnv(c Config) Config {
	if v := os.Getenv("KRYPTO_DB_HOST"); v != "" {
		c.Host = v
	}
	if v, err := strconv.Atoi(os.Getenv("KRYPTO_DB_PORT")); err == nil {
		c.Port = v
	}
	if v := os.Getenv("KRYPTO_DB_USER"); v != "" {
		c.User = v
	}
	if v := os.Getenv("KRYPTO_DB_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv("KRYPTO_DB_NAME"); v != "" {
		c.DBName = v
	}
	return c
}

// Store reads and writes candles of one exchange.
type Store struct {
	db       *sqlx.DB
	exchange string
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return &models.ExternalSourceError{Source: "postgres", Err: err}
}

// Connect opens the database and creates the candles table when missing.
func Connect(ctx context.Context, c Config) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN())
	if err != nil {
		return nil, wrap(err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, wrap(err)
	}
	logger.Debugf("Connected to postgres at %s:%d/%s", c.Host, c.Port, c.DBName)
	return &Store{db: db, exchange: c.Exchange}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func sortCandles(candles []models.Candle) {
	sort.Slice(candles, func(i, j int) bool { return candles[i].OpenTime < candles[j].OpenTime })
}

// Candles returns the most recent count candles in chronological order.
func (s *Store) Candles(ctx context.Context, symbol string, interval models.Interval, count int) ([]models.Candle, error) {
	candles := []models.Candle{}
	err := s.db.SelectContext(ctx, &candles,
		`select open_time, close_time, open, high, low, close, volume from candles
		where exchange = $1 and symbol = $2 and interval = $3 order by open_time desc limit $4`,
		s.exchange, symbol, string(interval), count)
	if err != nil {
		return nil, wrap(err)
	}
	if len(candles) == 0 {
		return nil, models.NewDataError("database.Candles", "no %s %s candles on %s", symbol, interval, s.exchange)
	}
	sortCandles(candles)
	return candles, nil
}

// CandlesBetween returns the candles opening in [start, end].
func (s *Store) CandlesBetween(ctx context.Context, symbol string, interval models.Interval, start, end time.Time) ([]models.Candle, error) {
	candles := []models.Candle{}
	err := s.db.SelectContext(ctx, &candles,
		`select open_time, close_time, open, high, low, close, volume from candles
		where exchange = $1 and symbol = $2 and interval = $3 and open_time >= $4 and open_time <= $5
		order by open_time`,
		s.exchange, symbol, string(interval), start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, wrap(err)
	}
	sortCandles(candles)
	return candles, nil
}

// Latest returns the newest stored candle.
func (s *Store) Latest(ctx context.Context, symbol string, interval models.Interval) (models.Candle, error) {
	candles, err := s.Candles(ctx, symbol, interval, 1)
	if err != nil {
		return models.Candle{}, err
	}
	return candles[0], nil
}

// SaveCandles upserts candles in one transaction.
func (s *Store) SaveCandles(ctx context.Context, symbol string, interval models.Interval, candles []models.Candle) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	for _, c := range candles {
		row := candleRow{Exchange: s.exchange, Symbol: symbol, Interval: string(interval), Candle: c}
		if _, err := tx.NamedExecContext(ctx, upsertCandle, row); err != nil {
			tx.Rollback()
			return wrap(err)
		}
	}
	return wrap(tx.Commit())
}
