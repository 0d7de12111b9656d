package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCalculateDifference(t *testing.T) {
	if d := CalculateDifference(110, 100); d != 0.1 {
		t.Error(d, "is not 0.1")
	}
	if d := CalculateDifference(5, 0); d != 0 {
		t.Error(d, "is not 0")
	}
}

func TestCreateKeyValuePairsSorted(t *testing.T) {
	s := CreateKeyValuePairs(map[string]interface{}{"b": 2, "A": 1, "C": 3}, true)
	if strings.Contains(s, "b:") {
		t.Error("lower case keys should be skipped:", s)
	}
	if strings.Index(s, "A:") > strings.Index(s, "C:") {
		t.Error("keys should be sorted:", s)
	}
}

func TestRetry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Error(calls, "calls with", err)
	}

	calls = 0
	err = Retry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return errors.New("boom")
	})
	if err == nil || calls != 2 {
		t.Error("expected the last error after 2 calls, got", calls, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Retry(ctx, 5, time.Second, func() error { return errors.New("boom") })
	if !errors.Is(err, context.Canceled) {
		t.Error(err, "is not context.Canceled")
	}
}
