package krypto

import (
	"math"

	"github.com/tantralabs/krypto/models"
	"github.com/tantralabs/krypto/predictor"
)

// StartingCash is the account value every fold starts from.
const StartingCash = 1000.0

type position struct {
	side     models.Side
	entry    float64
	notional float64
	quantity float64
	openFee  float64
}

func (p *position) direction() float64 {
	if p.side == models.Short {
		return -1
	}
	return 1
}

// returnAt is the position's unlevered return at price.
func (p *position) returnAt(price float64) float64 {
	return p.direction() * (price - p.entry) / p.entry
}

// Account replays signals against a cash balance. The same transition rule drives the
// backtest and the live loop.
type Account struct {
	Settings models.AlgorithmSettings
	Symbol   string

	Cash       float64
	FeeCharges int
	Fees       float64
	TradeLog   []models.TradeLogEntry
	Equity     []models.EquityPoint

	pos *position
}

// NewAccount starts flat with StartingCash.
func NewAccount(settings models.AlgorithmSettings, symbol string) *Account {
	return &Account{Settings: settings, Symbol: symbol, Cash: StartingCash}
}

// Side is the current position side.
func (a *Account) Side() models.Side {
	if a.pos == nil {
		return models.Flat
	}
	return a.pos.side
}

// Value is cash plus unrealized profit at price, never below 0.
func (a *Account) Value(price float64) float64 {
	v := a.Cash
	if a.pos != nil {
		v += a.pos.notional * a.pos.returnAt(price)
	}
	return math.Max(v, 0)
}

func (a *Account) open(side models.Side, price float64) {
	if a.Cash <= 0 || price <= 0 {
		return
	}
	notional := a.Cash * a.Settings.Leverage * a.Settings.TradeFraction
	fee := notional * a.Settings.Fee
	a.Cash -= fee
	a.Fees += fee
	a.FeeCharges++
	a.pos = &position{
		side:     side,
		entry:    price,
		notional: notional,
		quantity: notional / price,
		openFee:  fee,
	}
}

func (a *Account) close(price float64, timestamp int64, reason models.ExitReason) {
	p := a.pos
	if p == nil {
		return
	}
	ret := p.returnAt(price)
	pnl := p.notional * ret
	fee := p.quantity * price * a.Settings.Fee
	a.Cash += pnl - fee
	a.Fees += fee
	a.FeeCharges++
	if a.Cash < 0 {
		a.Cash = 0
	}
	a.pos = nil

	a.TradeLog = append(a.TradeLog, models.TradeLogEntry{
		Timestamp:   timestamp,
		Symbol:      a.Symbol,
		Side:        p.side.String(),
		EntryPrice:  p.entry,
		ExitPrice:   price,
		Quantity:    p.quantity,
		PnL:         pnl - fee - p.openFee,
		PnLPct:      ret * 100,
		Fee:         fee + p.openFee,
		CashAfter:   a.Cash,
		EquityAfter: a.Cash,
		Reason:      reason,
	})
	a.Equity = append(a.Equity, models.EquityPoint{Timestamp: timestamp, Cash: a.Cash, Equity: a.Cash})
}

// CheckRisk closes the position when its unrealized return crosses the stop-loss or
// take-profit percentage. It reports whether a close happened.
func (a *Account) CheckRisk(price float64, timestamp int64) bool {
	if a.pos == nil {
		return false
	}
	r := a.pos.returnAt(price) * 100
	switch {
	case a.Settings.StopLoss > 0 && r <= -a.Settings.StopLoss:
		a.close(price, timestamp, models.StopLoss)
		return true
	case a.Settings.TakeProfit > 0 && r >= a.Settings.TakeProfit:
		a.close(price, timestamp, models.TakeProfit)
		return true
	}
	return false
}

// Apply moves the account to the side implied by score. Holding the same side costs nothing;
// a change closes the current position and opens the new one, each paying the fee.
func (a *Account) Apply(score float64, price float64, timestamp int64) {
	side := models.SideOf(score)
	if a.pos != nil && a.pos.side == side {
		return
	}
	if a.pos != nil {
		a.close(price, timestamp, models.SignalFlip)
	}
	if side != models.Flat {
		a.open(side, price)
	}
}

// Close ends the current position with the given reason.
func (a *Account) Close(price float64, timestamp int64, reason models.ExitReason) {
	a.close(price, timestamp, reason)
}

// Simulate replays the held-out periods [from, to) of candles through p. The score at t
// trades the move from t to t+1; the last period only closes what is open.
func Simulate(settings models.AlgorithmSettings, symbol string, candles []models.Candle, p predictor.Predictor, from, to int) (models.FoldResult, error) {
	if from < 0 || to > len(candles) || to-from < 2 {
		return models.FoldResult{}, models.NewDataError("krypto.Simulate", "test window [%d, %d) over %d candles", from, to, len(candles))
	}
	account := NewAccount(settings, symbol)
	values := make([]float64, 0, to-from+1)
	values = append(values, StartingCash)
	scored, hits := 0, 0

	for t := from; t < to; t++ {
		c := candles[t]
		if t == to-1 {
			account.Close(c.Close, c.CloseTime, models.FoldEnd)
			values = append(values, account.Value(c.Close))
			break
		}
		stopped := account.CheckRisk(c.Close, c.CloseTime)

		score, err := p.Score(t)
		if err != nil {
			return models.FoldResult{}, err
		}
		if math.IsNaN(score) || math.IsInf(score, 0) {
			return models.FoldResult{}, models.NewModelFitError("krypto.Simulate", "non-finite score at %d", t)
		}
		if predicted := models.SideOf(score); predicted != models.Flat {
			if realized := models.SideOf(candles[t+1].Close - c.Close); realized != models.Flat {
				scored++
				if realized == predicted {
					hits++
				}
			}
		}
		if !stopped {
			account.Apply(score, c.Close, c.CloseTime)
		}
		values = append(values, account.Value(c.Close))
	}

	result := models.FoldResult{
		Accuracy:    0.5,
		Trades:      len(account.TradeLog),
		Fees:        account.Fees,
		FeeCharges:  account.FeeCharges,
		FinalEquity: account.Cash,
		NetReturn:   account.Cash/StartingCash - 1,
		TradeLog:    account.TradeLog,
		EquityCurve: account.Equity,
	}
	if scored > 0 {
		result.Accuracy = float64(hits) / float64(scored)
	}
	returns := periodReturns(values)
	result.Sharpe = sharpe(returns, settings.Interval.PeriodsPerYear())
	result.Probabilistic = probabilisticSharpe(returns)
	result.MaxDrawdown = maxDrawdown(values)
	result.MonthlyReturn = monthlyReturn(account.Cash, candles[from].OpenTime, candles[to-1].CloseTime)
	return result, nil
}
