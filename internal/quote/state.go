package quote

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status is the phase of the fetch lifecycle.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

var statusNames = [...]string{"idle", "loading", "ready", "failed"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	for i, n := range statusNames {
		if n == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(b))
}

// ErrorKind classifies a failed refresh for the user.
type ErrorKind int

const (
	ErrorNone ErrorKind = iota
	// FetchFailed covers network, DNS, HTTP status and envelope decoding failures.
	FetchFailed
	// InvalidSymbolOrLimit is a well-formed response without a daily series.
	// The provider answers an unknown symbol and a throttled key the same way.
	InvalidSymbolOrLimit
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return ""
	case FetchFailed:
		return "fetch_failed"
	case InvalidSymbolOrLimit:
		return "invalid_symbol_or_limit"
	default:
		return fmt.Sprintf("error_kind(%d)", int(k))
	}
}

// Message is the text shown to the user.
func (k ErrorKind) Message() string {
	switch k {
	case FetchFailed:
		return "Failed to fetch data"
	case InvalidSymbolOrLimit:
		return "Invalid symbol or API limit reached"
	default:
		return ""
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ErrorKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "":
		*k = ErrorNone
	case "fetch_failed":
		*k = FetchFailed
	case "invalid_symbol_or_limit":
		*k = InvalidSymbolOrLimit
	default:
		return fmt.Errorf("unknown error kind %q", string(b))
	}
	return nil
}

// FetchState is exactly one of idle, loading, ready (with a possibly empty
// sequence) or failed (with an ErrorKind). Build it with the constructors.
type FetchState struct {
	Status     Status
	Records    RecordSequence
	Error      ErrorKind
	Symbol     string
	WindowDays int
	Generation uint64
	UpdatedAt  time.Time
}

func Idle() FetchState { return FetchState{Status: StatusIdle} }

func Loading(symbol string, windowDays int, gen uint64, at time.Time) FetchState {
	return FetchState{Status: StatusLoading, Symbol: symbol, WindowDays: windowDays, Generation: gen, UpdatedAt: at}
}

// Ready never carries a nil sequence so an empty result is distinguishable
// from "no data" when serialized.
func Ready(symbol string, windowDays int, gen uint64, at time.Time, records RecordSequence) FetchState {
	if records == nil {
		records = RecordSequence{}
	}
	return FetchState{Status: StatusReady, Records: records, Symbol: symbol, WindowDays: windowDays, Generation: gen, UpdatedAt: at}
}

func Failed(symbol string, windowDays int, gen uint64, at time.Time, kind ErrorKind) FetchState {
	return FetchState{Status: StatusFailed, Error: kind, Symbol: symbol, WindowDays: windowDays, Generation: gen, UpdatedAt: at}
}

type fetchStateJSON struct {
	Status     Status         `json:"status"`
	Records    RecordSequence `json:"records,omitempty"`
	Error      ErrorKind      `json:"error,omitempty"`
	Message    string         `json:"message,omitempty"`
	Symbol     string         `json:"symbol,omitempty"`
	WindowDays int            `json:"window_days,omitempty"`
	Generation uint64         `json:"generation"`
	UpdatedAt  *time.Time     `json:"updated_at,omitempty"`
}

// MarshalJSON always emits "records" for a ready state, even when empty.
func (s FetchState) MarshalJSON() ([]byte, error) {
	out := fetchStateJSON{
		Status:     s.Status,
		Error:      s.Error,
		Message:    s.Error.Message(),
		Symbol:     s.Symbol,
		WindowDays: s.WindowDays,
		Generation: s.Generation,
	}
	if !s.UpdatedAt.IsZero() {
		at := s.UpdatedAt
		out.UpdatedAt = &at
	}
	if s.Status != StatusReady {
		return json.Marshal(out)
	}
	records := s.Records
	if records == nil {
		records = RecordSequence{}
	}
	return json.Marshal(struct {
		fetchStateJSON
		Records RecordSequence `json:"records"`
	}{fetchStateJSON: out, Records: records})
}

func (s *FetchState) UnmarshalJSON(b []byte) error {
	var in fetchStateJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*s = FetchState{
		Status:     in.Status,
		Records:    in.Records,
		Error:      in.Error,
		Symbol:     in.Symbol,
		WindowDays: in.WindowDays,
		Generation: in.Generation,
	}
	if in.UpdatedAt != nil {
		s.UpdatedAt = *in.UpdatedAt
	}
	if s.Status == StatusReady && s.Records == nil {
		s.Records = RecordSequence{}
	}
	return nil
}
