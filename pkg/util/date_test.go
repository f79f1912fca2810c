package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnixSecondsAndMillis(t *testing.T) {
	want := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)

	got, ok := ParseTime(strconv.FormatInt(want.Unix(), 10))
	if !ok || !got.Equal(want) {
		t.Fatalf("seconds: got %v ok=%v", got, ok)
	}
	got, ok = ParseTime(strconv.FormatInt(want.UnixMilli(), 10))
	if !ok || !got.Equal(want) {
		t.Fatalf("millis: got %v ok=%v", got, ok)
	}
}

func TestParseTimeSpaceLayout(t *testing.T) {
	got, ok := ParseTime("2024-10-10 10:10:10")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Hour() != 10 || got.Location() != time.UTC {
		t.Fatalf("unexpected %v", got)
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	if got := ParseTimeDefault("", def); !got.Equal(def) {
		t.Fatalf("expected default")
	}
	if got := ParseTimeDefault("yesterday", def); !got.Equal(def) {
		t.Fatalf("expected default for garbage input")
	}
}

func TestAlignToBar(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 13, 42, 0, time.UTC)
	got := AlignToBar(ts, 5*time.Minute)
	if got.Minute() != 10 || got.Second() != 0 {
		t.Fatalf("unexpected %v", got)
	}
}

func TestExchangeSymbol(t *testing.T) {
	for in, want := range map[string]string{"btc/usdt": "BTCUSDT", "ETH-USDT": "ETHUSDT", "SOLUSDT": "SOLUSDT"} {
		if got := ExchangeSymbol(in); got != want {
			t.Fatalf("%s: got %s want %s", in, got, want)
		}
	}
}
