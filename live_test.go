package krypto

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tantralabs/krypto/data"
	"github.com/tantralabs/krypto/models"
	"github.com/tantralabs/krypto/ta"
)

// replaySource serves a fixed history up to cursor, as if candles closed one by one.
type replaySource struct {
	history map[string][]models.Candle
	cursor  int
	latest  int
}

func (r *replaySource) Candles(_ context.Context, symbol string, _ models.Interval, count int) ([]models.Candle, error) {
	return data.Tail(r.history[symbol][:r.cursor], count), nil
}

func (r *replaySource) Latest(_ context.Context, symbol string, _ models.Interval) (models.Candle, error) {
	r.latest++
	return r.history[symbol][r.cursor-1], nil
}

func replayHistory(n int) map[string][]models.Candle {
	history := map[string][]models.Candle{}
	for _, symbol := range []string{"AAA", "BBB"} {
		closes := make([]float64, n)
		for i := range closes {
			x := float64(i)
			if symbol == "AAA" {
				closes[i] = 100 + 10*math.Sin(x/3) + 0.2*x
			} else {
				closes[i] = 50 + 5*math.Cos(x/4)
			}
		}
		history[symbol] = candlesFromCloses(closes)
	}
	return history
}

func TestLiveSteps(t *testing.T) {
	source := &replaySource{history: replayHistory(90), cursor: 50}
	live, err := NewLive(twoInstrumentSettings(), source, 40)
	if err != nil {
		t.Fatal(err)
	}
	live.ReportDir = t.TempDir()
	ctx := context.Background()

	stepped, err := live.Step(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !stepped {
		t.Fatal("first step did not process the latest candle")
	}
	if stepped, _ := live.Step(ctx); stepped {
		t.Error("stepped twice on the same candle")
	}

	sides := []models.Side{live.Account().Side()}
	for source.cursor < 90 {
		source.cursor++
		stepped, err := live.Step(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if !stepped {
			t.Fatal("candle", source.cursor, "was not processed")
		}
		sides = append(sides, live.Account().Side())
		if got := len(live.candles["AAA"]); got > live.Window {
			t.Error(got, "candles kept for a window of", live.Window)
		}
	}
	if source.latest == 0 {
		t.Error("later steps should only fetch the latest candle")
	}

	want := 0
	for i := 1; i < len(sides); i++ {
		if sides[i] != sides[i-1] && sides[i-1] != models.Flat {
			want++
		}
	}
	if got := len(live.Account().TradeLog); got != want {
		t.Error(got, "closes is not", want)
	}

	raw, err := os.ReadFile(filepath.Join(live.ReportDir, LiveEquityFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 1+len(sides) {
		t.Error(len(lines), "equity lines is not", 1+len(sides))
	}
}

func TestLiveCopiesSettings(t *testing.T) {
	settings := twoInstrumentSettings()
	live, err := NewLive(settings, &replaySource{history: replayHistory(60), cursor: 60}, 10)
	if err != nil {
		t.Fatal(err)
	}
	settings.Symbols[1] = "CCC"
	if live.settings.Symbols[1] != "BBB" {
		t.Error(live.settings.Symbols, "changed with the caller's settings")
	}
	if live.Window != ta.Lookback+settings.Depth+DefaultMinTrain+1 {
		t.Error(live.Window, "is not the minimum window")
	}

	settings.Target = "ZZZ"
	if _, err := NewLive(settings, nil, 10); !models.IsConfigurationError(err) {
		t.Error(err, "is not a configuration error")
	}
}

func TestLiveRefillsMissedCandles(t *testing.T) {
	source := &replaySource{history: replayHistory(150), cursor: 50}
	live, err := NewLive(twoInstrumentSettings(), source, 40)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := live.Step(ctx); err != nil {
		t.Fatal(err)
	}

	// one skipped candle, then a gap longer than the window
	for _, skip := range []int{2, live.Window + 5} {
		source.cursor += skip
		for i := 0; i < 15; i++ {
			stepped, err := live.Step(ctx)
			if err != nil {
				t.Fatal("step after skipping", skip, "candles:", err)
			}
			if !stepped {
				t.Fatal("candle", source.cursor, "was not processed")
			}
			candles := live.candles["AAA"]
			if got := candles[len(candles)-1].OpenTime; got != source.history["AAA"][source.cursor-1].OpenTime {
				t.Error(got, "is not the latest candle")
			}
			if _, err := data.PrepareCandles("AAA", live.settings.Interval, candles); err != nil {
				t.Error(err)
			}
			source.cursor++
		}
	}
}

func TestLiveWaits(t *testing.T) {
	live, err := NewLive(twoInstrumentSettings(), nil, 40)
	if err != nil {
		t.Fatal(err)
	}
	live.Settle = time.Second
	live.Poll = time.Minute
	interval := live.settings.Interval.Duration()
	now := time.Unix(0, 0).UTC().Add(3*interval + interval/2)
	untilTick := nextTick(now, interval, live.Settle).Sub(now)

	if got := live.nextWait(now, true, nil); got != untilTick {
		t.Error(got, "is not", untilTick)
	}
	if got := live.nextWait(now, false, nil); got != time.Minute {
		t.Error(got, "is not", time.Minute)
	}
	if got := live.nextWait(now, true, errors.New("exchange down")); got != time.Minute {
		t.Error(got, "is not", time.Minute)
	}
	live.Poll = 2 * interval
	if got := live.nextWait(now, false, nil); got != untilTick {
		t.Error(got, "is not", untilTick)
	}
}

func TestNextTick(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 17, 30, 0, time.UTC)
	got := nextTick(now, time.Hour, time.Second)
	if want := time.Date(2024, 1, 1, 11, 0, 1, 0, time.UTC); !got.Equal(want) {
		t.Error(got, "is not", want)
	}
}
