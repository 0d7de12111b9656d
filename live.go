package krypto

import (
	"context"
	"math"
	"path/filepath"
	"time"

	"github.com/jinzhu/copier"
	"github.com/tantralabs/krypto/cache"
	"github.com/tantralabs/krypto/data"
	"github.com/tantralabs/krypto/logger"
	"github.com/tantralabs/krypto/models"
	"github.com/tantralabs/krypto/ta"
)

// Live report files, appended to on every step.
const (
	LiveTradeFile  = "live_trades.csv"
	LiveEquityFile = "live_equity.csv"
)

// MarketSource supplies candle history and the most recent closed candle.
type MarketSource interface {
	Candles(ctx context.Context, symbol string, interval models.Interval, count int) ([]models.Candle, error)
	Latest(ctx context.Context, symbol string, interval models.Interval) (models.Candle, error)
}

// Live paper-trades one settings value. Every closed candle refits the predictor on the
// rolling window and applies the backtest transition rule to the latest period.
type Live struct {
	Source    MarketSource
	Window    int
	Store     cache.Store
	Sink      *InfluxSink
	ReportDir string // empty disables CSV output
	Settle    time.Duration
	Poll      time.Duration // retry cadence while the next candle has not closed or a step failed

	settings models.AlgorithmSettings
	account  *Account
	candles  map[string][]models.Candle
	last     int64
}

// NewLive copies settings so later edits by the caller do not leak into the loop.
func NewLive(settings models.AlgorithmSettings, source MarketSource, window int) (*Live, error) {
	var own models.AlgorithmSettings
	if err := copier.Copy(&own, &settings); err != nil {
		return nil, err
	}
	own.Symbols = append([]string(nil), settings.Symbols...)
	if err := own.Validate(); err != nil {
		return nil, models.NewConfigurationError("live.settings", "%v", err)
	}
	minWindow := ta.Lookback + own.Depth + DefaultMinTrain + 1
	if window < minWindow {
		window = minWindow
	}
	return &Live{
		Source:   source,
		Window:   window,
		Settle:   2 * time.Second,
		Poll:     time.Minute,
		settings: own,
		account:  NewAccount(own, own.Target),
		candles:  make(map[string][]models.Candle, len(own.Symbols)),
	}, nil
}

// Account is the paper account. It must not be used while Run is active.
func (l *Live) Account() *Account {
	return l.account
}

// refresh pulls the full window on first use and only the latest candle afterwards.
// Candles skipped since the previous step are fetched again so the window stays contiguous.
func (l *Live) refresh(ctx context.Context) error {
	interval := l.settings.Interval
	for _, symbol := range l.settings.Symbols {
		local := l.candles[symbol]
		if len(local) == 0 {
			candles, err := l.Source.Candles(ctx, symbol, interval, l.Window)
			if err != nil {
				return models.AsDataError("krypto.Live", err)
			}
			l.candles[symbol] = data.Tail(candles, l.Window)
			continue
		}
		latest, err := l.Source.Latest(ctx, symbol, interval)
		if err != nil {
			return models.AsDataError("krypto.Live", err)
		}
		fresh := []models.Candle{latest}
		if missing := missingCandles(local[len(local)-1], latest, interval); missing > 0 {
			count := missing + 1
			if count >= l.Window {
				count, local = l.Window, nil
			}
			logger.Warnf("Refilling %d missed %s %s candles", missing, symbol, interval)
			fresh, err = l.Source.Candles(ctx, symbol, interval, count)
			if err != nil {
				return models.AsDataError("krypto.Live", err)
			}
		}
		l.candles[symbol] = data.Tail(data.MergeCandles(local, fresh), l.Window)
	}
	return nil
}

// missingCandles counts the periods strictly between last and latest.
func missingCandles(last, latest models.Candle, interval models.Interval) int {
	step := interval.Millis()
	if step <= 0 || latest.OpenTime <= last.OpenTime {
		return 0
	}
	return int((latest.OpenTime-last.OpenTime)/step) - 1
}

// Step processes the newest closed candle. It returns false when nothing new has closed.
func (l *Live) Step(ctx context.Context) (bool, error) {
	if err := l.refresh(ctx); err != nil {
		return false, err
	}
	d, err := data.NewDataset(l.settings.Interval, l.candles)
	if err != nil {
		return false, err
	}
	target, err := d.Get(l.settings.Target)
	if err != nil {
		return false, err
	}
	now := len(target.Candles) - 1
	c := target.Candles[now]
	if c.CloseTime <= l.last {
		return false, nil
	}

	p, err := fitPredictor(ctx, l.Store, d, l.settings, d.FirstUsable(), d.Len())
	if err != nil {
		return false, err
	}
	score, err := p.Score(now)
	if err != nil {
		return false, err
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return false, models.NewModelFitError("krypto.Live", "non-finite score at %d", c.CloseTime)
	}

	closed := len(l.account.TradeLog)
	if !l.account.CheckRisk(c.Close, c.CloseTime) {
		l.account.Apply(score, c.Close, c.CloseTime)
	}
	l.last = c.CloseTime

	point := models.EquityPoint{Timestamp: c.CloseTime, Cash: l.account.Cash, Equity: l.account.Value(c.Close)}
	l.publish(l.account.TradeLog[closed:], point)
	logger.WithFields(logger.Fields{
		"symbol": l.settings.Target,
		"closed": c.CloseAt().Format(time.RFC3339),
		"close":  c.Close,
		"score":  score,
		"side":   l.account.Side().String(),
		"equity": point.Equity,
	}).Info("live step")
	return true, nil
}

func (l *Live) publish(trades []models.TradeLogEntry, point models.EquityPoint) {
	for _, t := range trades {
		logger.Infof("Closed %s %s at %.4f (%s): pnl %.4f", t.Side, t.Symbol, t.ExitPrice, t.Reason, t.PnL)
		l.Sink.Trade(t)
	}
	l.Sink.Equity(l.settings.Target, point)
	if l.ReportDir == "" {
		return
	}
	if len(trades) > 0 {
		rows := append([]models.TradeLogEntry(nil), trades...)
		if err := appendCSV(filepath.Join(l.ReportDir, LiveTradeFile), &rows); err != nil {
			logger.Errorf("live trade log: %v", err)
		}
	}
	points := []models.EquityPoint{point}
	if err := appendCSV(filepath.Join(l.ReportDir, LiveEquityFile), &points); err != nil {
		logger.Errorf("live equity log: %v", err)
	}
}

// nextTick is the first interval boundary after now plus settle.
func nextTick(now time.Time, interval time.Duration, settle time.Duration) time.Time {
	return now.Truncate(interval).Add(interval).Add(settle)
}

// nextWait is how long Run sleeps after a step. A processed candle waits for the next
// boundary; a stale candle or a failed step is retried after Poll, but never past the boundary.
func (l *Live) nextWait(now time.Time, stepped bool, err error) time.Duration {
	untilTick := nextTick(now, l.settings.Interval.Duration(), l.Settle).Sub(now)
	if stepped && err == nil {
		return untilTick
	}
	if l.Poll > 0 && l.Poll < untilTick {
		return l.Poll
	}
	return untilTick
}

// Run steps shortly after each candle closes until ctx is done. Step errors are logged
// and the loop keeps going.
func (l *Live) Run(ctx context.Context) error {
	logger.Infof("Live trading %s on %s, polling every %s", l.settings.Target, l.settings, l.Poll)
	for {
		stepped, err := l.Step(ctx)
		if err != nil {
			logger.Errorf("live step: %v", err)
		}
		timer := time.NewTimer(l.nextWait(time.Now(), stepped, err))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Infof("Live loop stopped with equity %.2f after %d trades", l.account.Cash, len(l.account.TradeLog))
			return nil
		case <-timer.C:
		}
	}
}
