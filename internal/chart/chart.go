// Package chart shapes a record sequence into the series a chart kind draws.
package chart

import (
	"fmt"
	"math"
	"strings"

	"stockchart/internal/quote"
)

// Kind is a chart presentation.
type Kind string

const (
	Line Kind = "line"
	Area Kind = "area"
	Bar  Kind = "bar"
)

// Kinds lists the supported kinds in display order.
var Kinds = []Kind{Line, Area, Bar}

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown chart kind %q", s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case Line, Area, Bar:
		return true
	}
	return false
}

// Point is one closing price.
type Point struct {
	Date  quote.Date `json:"date"`
	Value float64    `json:"value"`
}

// Candle is one full trading day.
type Candle struct {
	Date   quote.Date `json:"date"`
	Open   float64    `json:"open"`
	High   float64    `json:"high"`
	Low    float64    `json:"low"`
	Close  float64    `json:"close"`
	Volume int64      `json:"volume"`
}

// Summary describes the whole window. Volume is the total, capped at
// math.MaxInt64.
type Summary struct {
	First     float64 `json:"first"`
	Last      float64 `json:"last"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Volume    int64   `json:"volume"`
}

// Series is what the front end draws. Line and area charts use Points, bar
// charts use Bars. Area charts fill down to Baseline.
type Series struct {
	Kind     Kind     `json:"kind"`
	Symbol   string   `json:"symbol,omitempty"`
	Count    int      `json:"count"`
	Points   []Point  `json:"points,omitempty"`
	Bars     []Candle `json:"bars,omitempty"`
	Baseline *float64 `json:"baseline,omitempty"`
	Summary  *Summary `json:"summary,omitempty"`
}

// Build shapes seq for kind. seq must be sorted ascending; it is not modified.
func Build(kind Kind, seq quote.RecordSequence) (Series, error) {
	if !kind.Valid() {
		return Series{}, fmt.Errorf("unknown chart kind %q", string(kind))
	}
	s := Series{Kind: kind, Count: len(seq)}
	if len(seq) == 0 {
		return s, nil
	}

	sum := Summarize(seq)
	s.Summary = &sum

	switch kind {
	case Bar:
		s.Bars = make([]Candle, len(seq))
		for i, r := range seq {
			s.Bars[i] = Candle{Date: r.Date, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
		}
	default:
		s.Points = make([]Point, len(seq))
		minClose := seq[0].Close
		for i, r := range seq {
			s.Points[i] = Point{Date: r.Date, Value: r.Close}
			if r.Close < minClose {
				minClose = r.Close
			}
		}
		if kind == Area {
			s.Baseline = &minClose
		}
	}
	return s, nil
}

// Summarize folds seq into first/last close, range and total volume.
// It returns the zero Summary for an empty sequence.
func Summarize(seq quote.RecordSequence) Summary {
	if len(seq) == 0 {
		return Summary{}
	}
	out := Summary{
		First: seq[0].Close,
		Last:  seq[len(seq)-1].Close,
		High:  seq[0].High,
		Low:   seq[0].Low,
	}
	for _, r := range seq {
		if r.High > out.High {
			out.High = r.High
		}
		if r.Low < out.Low {
			out.Low = r.Low
		}
		// Volumes are non-negative; the total saturates instead of wrapping.
		if r.Volume > math.MaxInt64-out.Volume {
			out.Volume = math.MaxInt64
		} else {
			out.Volume += r.Volume
		}
	}
	out.Change = out.Last - out.First
	if out.First != 0 {
		out.ChangePct = out.Change / out.First * 100
	}
	return out
}
