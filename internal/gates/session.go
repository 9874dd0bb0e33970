package gates

import "time"

// SessionClass buckets a wall-clock instant in exchange time.
type SessionClass string

const (
	SessionPremarket  SessionClass = "PREMARKET"
	SessionRegular    SessionClass = "REGULAR"
	SessionAfterhours SessionClass = "AFTERHOURS"
	SessionWeekend    SessionClass = "WEEKEND"
)

// SessionClock classifies timestamps in a fixed exchange timezone.
// The location is injected at wiring; gate evaluation never consults
// the host locale.
type SessionClock struct {
	loc *time.Location
}

// NewSessionClock loads the exchange timezone (America/New_York in
// production wiring).
func NewSessionClock(tzName string) (*SessionClock, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, err
	}
	return &SessionClock{loc: loc}, nil
}

// Classify buckets a Unix-millisecond instant. Regular hours are
// 09:30–16:00 exchange time.
func (sc *SessionClock) Classify(unixMillis int64) SessionClass {
	t := time.UnixMilli(unixMillis).In(sc.loc)

	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return SessionWeekend
	}

	minutes := t.Hour()*60 + t.Minute()
	switch {
	case minutes < 9*60+30:
		return SessionPremarket
	case minutes < 16*60:
		return SessionRegular
	default:
		return SessionAfterhours
	}
}

// Blocks reports whether the class forbids execution. Only the
// after-hours window blocks; weekends trade (futures and crypto
// producers emit through them).
func (c SessionClass) Blocks() bool {
	return c == SessionAfterhours
}
