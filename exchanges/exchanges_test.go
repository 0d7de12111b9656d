package exchanges

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tantralabs/krypto/cache"
	"github.com/tantralabs/krypto/models"
)

// fakeBinance serves hourly klines for any requested window and fails the first request.
func fakeBinance(t *testing.T, failures int32) (*httptest.Server, *int32) {
	var calls int32
	step := models.Hour.Millis()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= failures {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		start, _ := strconv.ParseInt(q.Get("startTime"), 10, 64)
		end, _ := strconv.ParseInt(q.Get("endTime"), 10, 64)
		if start == 0 {
			now := time.Now().UnixMilli() / step * step
			start, end = now-int64(limit-1)*step, now+step-1
		}
		fmt.Fprint(w, "[")
		first := true
		for open, i := start, 0; open <= end && i < limit; open, i = open+step, i+1 {
			if !first {
				fmt.Fprint(w, ",")
			}
			first = false
			price := 100 + float64(open/step%50)
			fmt.Fprintf(w, `[%d,"%f","%f","%f","%f","10.5",%d,"0",1,"0","0","0"]`, open, price, price+1, price-1, price+0.5, open+step-1)
		}
		fmt.Fprint(w, "]")
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClientCandles(t *testing.T) {
	srv, _ := fakeBinance(t, 1)
	c := NewClient(srv.URL)
	c.RetryDelay = time.Millisecond
	candles, err := c.Candles(context.Background(), "AAAUSDT", models.Hour, 2500)
	if err != nil {
		t.Fatal(err)
	}
	if len(candles) != 2500 {
		t.Fatal(len(candles), "is not", 2500)
	}
	for i := 1; i < len(candles); i++ {
		if candles[i].OpenTime-candles[i-1].OpenTime != models.Hour.Millis() {
			t.Fatal("gap at", i)
		}
	}
	if last := candles[len(candles)-1]; last.CloseTime >= time.Now().UnixMilli() {
		t.Error(last, "is still open")
	}
}

func TestClientGivesUp(t *testing.T) {
	srv, _ := fakeBinance(t, 100)
	c := NewClient(srv.URL)
	c.Attempts, c.RetryDelay = 2, time.Millisecond
	_, err := c.Latest(context.Background(), "AAAUSDT", models.Hour)
	if !models.IsExternalSourceError(err) {
		t.Error(err, "is not an external source error")
	}
}

func TestLoaderCachesAndAligns(t *testing.T) {
	srv, calls := fakeBinance(t, 0)
	l := &Loader{Source: NewClient(srv.URL), Cache: cache.NewMemoryCache(0), Name: Binance, Parallel: 2}
	d, err := l.Load(context.Background(), []string{"AAAUSDT", "BBBUSDT"}, models.Hour, 100)
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 100 || len(d.Symbols) != 2 {
		t.Error(d.Len(), d.Symbols)
	}
	before := atomic.LoadInt32(calls)
	if _, err := l.Load(context.Background(), []string{"AAAUSDT", "BBBUSDT"}, models.Hour, 100); err != nil {
		t.Fatal(err)
	}
	if after := atomic.LoadInt32(calls); after != before {
		t.Error(after-before, "requests on a cached load")
	}
}

func TestLoaderDataError(t *testing.T) {
	srv, _ := fakeBinance(t, 1000)
	c := NewClient(srv.URL)
	c.Attempts, c.RetryDelay = 1, time.Millisecond
	l := &Loader{Source: c}
	if _, err := l.Load(context.Background(), []string{"AAAUSDT"}, models.Hour, 50); !models.IsDataError(err) {
		t.Error(err, "is not a data error")
	}
}

func TestStreamHandle(t *testing.T) {
	s := NewStream(nil, "")
	step := models.Hour.Millis()
	open := time.Now().UnixMilli()/step*step - step
	frame := fmt.Sprintf(`{"stream":"aaausdt@kline_1h","data":{"s":"AAAUSDT","k":{"t":%d,"T":%d,"i":"1h","o":"1","h":"2","l":"0.5","c":"1.5","v":"10","x":true}}}`, open, open+step-1)
	if err := s.handle([]byte(frame)); err != nil {
		t.Fatal(err)
	}
	c, err := s.Latest(context.Background(), "AAAUSDT", models.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if c.OpenTime != open || c.Close != 1.5 {
		t.Error(c, "is not the streamed candle")
	}
}

func TestCSVSource(t *testing.T) {
	s := CSVSource{Dir: t.TempDir()}
	step := models.Hour.Millis()
	candles := []models.Candle{
		{OpenTime: step, CloseTime: 2*step - 1, Open: 1, High: 1, Low: 1, Close: 2, Volume: 1},
		{OpenTime: 0, CloseTime: step - 1, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
	}
	if err := s.SaveCandles(context.Background(), "AAA", models.Hour, candles); err != nil {
		t.Fatal(err)
	}
	latest, err := s.Latest(context.Background(), "AAA", models.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if latest.OpenTime != step {
		t.Error(latest.OpenTime, "is not", step)
	}
}
