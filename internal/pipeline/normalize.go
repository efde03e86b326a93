package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"stockchart/internal/provider"
	"stockchart/internal/quote"
)

// MalformedRecord describes a day that was left out of the sequence.
type MalformedRecord struct {
	Date  string
	Field string
	Err   error
}

func (m MalformedRecord) Error() string {
	if m.Field == "" {
		return fmt.Sprintf("record %s: %v", m.Date, m.Err)
	}
	return fmt.Sprintf("record %s field %q: %v", m.Date, m.Field, m.Err)
}

var (
	errMissingField = errors.New("missing field")
	errNotString    = errors.New("value is not a string")
	errNegative     = errors.New("value is negative")
	errNotFinite    = errors.New("value is not finite")
)

// Normalize turns a raw daily series into a sequence sorted ascending by
// date. Days whose date key or any price/volume field cannot be parsed are
// dropped and reported; nothing is coerced to zero.
func Normalize(series map[string]provider.RawDay) (quote.RecordSequence, []MalformedRecord) {
	out := make(quote.RecordSequence, 0, len(series))
	var bad []MalformedRecord
	for key, day := range series {
		rec, err := parseDay(key, day)
		if err != nil {
			var m MalformedRecord
			if errors.As(err, &m) {
				bad = append(bad, m)
			} else {
				bad = append(bad, MalformedRecord{Date: key, Err: err})
			}
			continue
		}
		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	sort.Slice(bad, func(i, j int) bool { return bad[i].Date < bad[j].Date })
	return dedupe(out), bad
}

// dedupe keeps the last of any run of equal dates. Distinct date keys always
// parse to distinct days, so this only guards the sequence invariant.
func dedupe(seq quote.RecordSequence) quote.RecordSequence {
	if len(seq) < 2 {
		return seq
	}
	out := seq[:1]
	for _, r := range seq[1:] {
		if r.Date.Equal(out[len(out)-1].Date) {
			out[len(out)-1] = r
			continue
		}
		out = append(out, r)
	}
	return out
}

// Filter keeps the records dated on or after today minus windowDays. A window
// reaching back past year 1 keeps everything.
func Filter(seq quote.RecordSequence, today quote.Date, windowDays int) quote.RecordSequence {
	if windowDays >= today.DaysSince(quote.Date{}) {
		return seq
	}
	return seq.Since(today.AddDays(-windowDays))
}

func parseDay(key string, day provider.RawDay) (quote.DailyRecord, error) {
	date, err := quote.ParseDate(key)
	if err != nil {
		return quote.DailyRecord{}, MalformedRecord{Date: key, Err: err}
	}

	rec := quote.DailyRecord{Date: date}
	prices := []struct {
		field string
		dst   *float64
	}{
		{provider.FieldOpen, &rec.Open},
		{provider.FieldHigh, &rec.High},
		{provider.FieldLow, &rec.Low},
		{provider.FieldClose, &rec.Close},
	}
	for _, p := range prices {
		s, err := stringField(day, p.field)
		if err != nil {
			return quote.DailyRecord{}, MalformedRecord{Date: key, Field: p.field, Err: err}
		}
		v, err := parsePrice(s)
		if err != nil {
			return quote.DailyRecord{}, MalformedRecord{Date: key, Field: p.field, Err: err}
		}
		*p.dst = v
	}

	s, err := stringField(day, provider.FieldVolume)
	if err != nil {
		return quote.DailyRecord{}, MalformedRecord{Date: key, Field: provider.FieldVolume, Err: err}
	}
	vol, err := parseVolume(s)
	if err != nil {
		return quote.DailyRecord{}, MalformedRecord{Date: key, Field: provider.FieldVolume, Err: err}
	}
	rec.Volume = vol
	return rec, nil
}

func stringField(day provider.RawDay, field string) (string, error) {
	raw, ok := day[field]
	if !ok {
		return "", errMissingField
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errNotString
	}
	return strings.TrimSpace(s), nil
}

func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	if v < 0 {
		return 0, errNegative
	}
	return v, nil
}

// parseVolume accepts plain integers and whole numbers written with a
// fractional part ("1000.0").
func parseVolume(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		if v < 0 {
			return 0, errNegative
		}
		return v, nil
	}
	f, err := parsePrice(s)
	if err != nil {
		return 0, err
	}
	// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
	if f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, fmt.Errorf("volume %q is not a whole number", s)
	}
	return int64(f), nil
}
