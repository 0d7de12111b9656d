package models

// Side of an open position.
type Side int

const (
	Flat Side = iota
	Long
	Short
)

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// SideOf maps a predictor score to a position side.
func SideOf(score float64) Side {
	switch {
	case score > 0:
		return Long
	case score < 0:
		return Short
	default:
		return Flat
	}
}

// ExitReason explains why a position was closed.
type ExitReason string

const (
	SignalFlip ExitReason = "signal-flip"
	StopLoss   ExitReason = "stop-loss"
	TakeProfit ExitReason = "take-profit"
	FoldEnd    ExitReason = "fold-end"
)

// TradeLogEntry records one closed position.
type TradeLogEntry struct {
	Timestamp   int64      `csv:"timestamp" json:"timestamp"`
	Symbol      string     `csv:"symbol" json:"symbol"`
	Side        string     `csv:"side" json:"side"`
	EntryPrice  float64    `csv:"entry_price" json:"entry_price"`
	ExitPrice   float64    `csv:"exit_price" json:"exit_price"`
	Quantity    float64    `csv:"quantity" json:"quantity"`
	PnL         float64    `csv:"pnl" json:"pnl"`
	PnLPct      float64    `csv:"pnl_pct" json:"pnl_pct"`
	Fee         float64    `csv:"fee" json:"fee"`
	CashAfter   float64    `csv:"cash_after" json:"cash_after"`
	EquityAfter float64    `csv:"equity_after" json:"equity_after"`
	Reason      ExitReason `csv:"reason" json:"reason"`
}

// EquityPoint is the account value right after a close.
type EquityPoint struct {
	Timestamp int64   `csv:"timestamp" json:"timestamp"`
	Cash      float64 `csv:"cash" json:"cash"`
	Equity    float64 `csv:"equity" json:"equity"`
}
