// Package krypto predicts the next-period direction of a crypto instrument from lagged
// indicators of a basket of instruments.
//
// An Evaluator backtests one AlgorithmSettings value over walk-forward folds and scores it
// with a Fitness. The optimize package searches the settings space with it, and Live
// paper-trades the winner with the same Account transition rule the backtest uses.
package krypto
