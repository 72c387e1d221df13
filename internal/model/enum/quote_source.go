package enum

import "github.com/yanun0323/errors"

// QuoteSource tells whether quotes come from the oracle or from the fallback list.
type QuoteSource uint8

const (
	_quote_source_beg QuoteSource = iota
	QuoteSourceLive
	QuoteSourceDegraded
	_quote_source_end
)

func (s QuoteSource) IsAvailable() bool {
	return s > _quote_source_beg && s < _quote_source_end
}

func (s QuoteSource) String() string {
	switch s {
	case QuoteSourceLive:
		return "live"
	case QuoteSourceDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

func (s QuoteSource) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *QuoteSource) UnmarshalText(b []byte) error {
	switch string(b) {
	case "live":
		*s = QuoteSourceLive
	case "degraded":
		*s = QuoteSourceDegraded
	default:
		return errors.Errorf("unknown quote source %q", string(b))
	}
	return nil
}
