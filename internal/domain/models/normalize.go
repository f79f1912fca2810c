package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"

	"TradeScore/pkg/util"
)

// DecodeTradeEvent turns a raw inbound payload into a typed TradeEvent. Producers are loose about
// types (numbers as strings, unix or RFC3339 timestamps), so every coercion happens here and nowhere
// else. The returned event is not validated; call Validate.
func DecodeTradeEvent(payload []byte) (TradeEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return TradeEvent{}, NewValidationError("", "malformed json: "+err.Error())
	}
	if raw == nil {
		return TradeEvent{}, NewValidationError("", "empty payload")
	}

	ev := TradeEvent{
		ID:       cast.ToString(raw["id"]),
		Pair:     strings.TrimSpace(cast.ToString(firstPresent(raw, "pair", "symbol"))),
		Side:     ParseSide(cast.ToString(raw["side"])),
		Strategy: strings.TrimSpace(cast.ToString(raw["strategy"])),
	}

	var err error
	if ev.Amount, err = numberField(raw, "amount"); err != nil {
		return ev, err
	}
	if ev.Price, err = numberField(raw, "price"); err != nil {
		return ev, err
	}
	if ev.Timestamp, err = timeField(raw, "timestamp"); err != nil {
		return ev, err
	}

	if p, ok := raw["parameters"].(map[string]interface{}); ok {
		ev.Parameters, _ = NormalizeParameters(p)
	}
	if m, ok := raw["metadata"].(map[string]interface{}); ok {
		ev.Metadata = m
	}
	return ev, nil
}

// NormalizeParameters coerces strategy parameters to float64. Keys whose values are not numeric
// are dropped and returned sorted so callers can log them.
func NormalizeParameters(in map[string]interface{}) (map[string]float64, []string) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(in))
	var dropped []string
	for k, v := range in {
		f, err := cast.ToFloat64E(v)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			dropped = append(dropped, k)
			continue
		}
		out[k] = f
	}
	sort.Strings(dropped)
	return out, dropped
}

func firstPresent(raw map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func numberField(raw map[string]interface{}, key string) (float64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, NewValidationError(key, fmt.Sprintf("not a number: %v", v))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, NewValidationError(key, "not finite")
	}
	return f, nil
}

func timeField(raw map[string]interface{}, key string) (time.Time, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return time.Time{}, nil
	}
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, NewValidationError(key, "bad unix timestamp")
		}
		return util.FromUnixAuto(f), nil
	case string:
		if ts, ok := util.ParseTime(t); ok {
			return ts, nil
		}
		return time.Time{}, NewValidationError(key, "unparseable timestamp "+t)
	default:
		return time.Time{}, NewValidationError(key, fmt.Sprintf("unsupported timestamp type %T", v))
	}
}
