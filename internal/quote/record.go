// Package quote holds the normalized daily price model shared by the
// fetch pipeline and the presentation layer.
package quote

// DailyRecord is one trading day of a single symbol.
type DailyRecord struct {
	Date   Date    `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// RecordSequence is ordered strictly ascending by Date with no duplicate days.
// A published sequence is shared with every reader and must not be modified.
type RecordSequence []DailyRecord

// Clone returns a copy that the caller may modify freely.
func (s RecordSequence) Clone() RecordSequence {
	if s == nil {
		return nil
	}
	out := make(RecordSequence, len(s))
	copy(out, s)
	return out
}

// IsSorted reports whether s is strictly ascending by date.
func (s RecordSequence) IsSorted() bool {
	for i := 1; i < len(s); i++ {
		if !s[i-1].Date.Before(s[i].Date) {
			return false
		}
	}
	return true
}

// Since returns the suffix of s whose dates are on or after cutoff.
// s must be sorted; the result shares s's backing array.
func (s RecordSequence) Since(cutoff Date) RecordSequence {
	lo, hi := 0, len(s)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if s[mid].Date.Before(cutoff) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return s[lo:]
}
