package models

// FoldResult contains the outcome of one walk-forward fold for one AlgorithmSettings.
type FoldResult struct {
	Fold          int             `json:"fold"`
	Accuracy      float64         `json:"accuracy"`       // Fraction of scored periods with the right direction
	NetReturn     float64         `json:"net_return"`     // final equity / starting cash - 1
	Sharpe        float64         `json:"sharpe"`         // Annualized per-period Sharpe ratio
	Probabilistic float64         `json:"probabilistic"`  // Probability that the true Sharpe is above 0
	MonthlyReturn float64         `json:"monthly_return"` // Geometric monthly return over the fold
	MaxDrawdown   float64         `json:"max_drawdown"`   // Worst peak to trough equity move, <= 0
	Trades        int             `json:"trades"`
	Fees          float64         `json:"fees"`
	FeeCharges    int             `json:"fee_charges"`
	FinalEquity   float64         `json:"final_equity"`
	TradeLog      []TradeLogEntry `json:"trade_log"`
	EquityCurve   []EquityPoint   `json:"equity_curve"`
}
