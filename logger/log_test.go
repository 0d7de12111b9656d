package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestDisplayLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetDisplayLevel("info")

	SetDisplayLevel("error")
	Infof("hidden %d", 1)
	if buf.Len() != 0 {
		t.Error("info line written at error level:", buf.String())
	}
	Errorf("shown %d", 2)
	if !strings.Contains(buf.String(), "shown 2") {
		t.Error("error line missing:", buf.String())
	}
}

func TestJSONFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetJSON(true)
	defer SetJSON(false)
	WithFields(Fields{"generation": 3}).Info("snapshot")
	if !strings.Contains(buf.String(), `"generation":3`) {
		t.Error("fields missing from JSON output:", buf.String())
	}
}
