package remote

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/wellness/internal/domain/model"
	"github.com/okian/wellness/internal/domain/types"
	"github.com/tidwall/gjson"
)

// timestampLayouts covers RFC 3339 and the naive ISO forms the service emits.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// decodeHistory normalises the metrics field into a slice. A single object
// becomes a one-element slice; null or an absent field becomes an empty one.
func decodeHistory(body []byte, owner string) ([]model.MetricEntry, error) {
	metricsField := gjson.GetBytes(body, "metrics")

	switch {
	case !metricsField.Exists(), metricsField.Type == gjson.Null:
		return []model.MetricEntry{}, nil
	case metricsField.IsObject():
		e, err := decodeEntry(metricsField, owner)
		if err != nil {
			return nil, err
		}
		return []model.MetricEntry{e}, nil
	case metricsField.IsArray():
		items := metricsField.Array()
		out := make([]model.MetricEntry, 0, len(items))
		for i, item := range items {
			if !item.IsObject() {
				return nil, fmt.Errorf("metrics[%d] is not an object", i)
			}
			e, err := decodeEntry(item, owner)
			if err != nil {
				return nil, fmt.Errorf("metrics[%d]: %w", i, err)
			}
			out = append(out, e)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("metrics has unexpected type %s", metricsField.Type)
	}
}

func decodeEntry(obj gjson.Result, owner string) (model.MetricEntry, error) {
	steps, err := number(obj, types.StepsKeys)
	if err != nil {
		return model.MetricEntry{}, err
	}
	calories, err := number(obj, types.CaloriesKeys)
	if err != nil {
		return model.MetricEntry{}, err
	}
	sleep, err := number(obj, types.SleepKeys)
	if err != nil {
		return model.MetricEntry{}, err
	}

	e := model.MetricEntry{
		Owner:          owner,
		Steps:          int(math.Round(steps)),
		CaloriesBurned: calories,
		SleepHours:     sleep,
	}
	if id := first(obj, types.IDKeys); id.Exists() && id.Type != gjson.Null {
		e.ID = id.String()
	}
	if ts := first(obj, types.TimestampKeys); ts.Type == gjson.String {
		e.Timestamp = parseTimestamp(ts.String())
	}
	return e, nil
}

// number reads the first present alias. Missing fields read as zero;
// present fields must be numbers or numeric strings.
func number(obj gjson.Result, keys []string) (float64, error) {
	v := first(obj, keys)
	switch v.Type {
	case gjson.Number:
		return v.Float(), nil
	case gjson.Null:
		return 0, nil
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, fmt.Errorf("field %s is not numeric: %q", keys[0], v.Str)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("field %s has unexpected type %s", keys[0], v.Type)
	}
}

func first(obj gjson.Result, keys []string) gjson.Result {
	for _, k := range keys {
		if v := obj.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
