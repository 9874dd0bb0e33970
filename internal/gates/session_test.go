package gates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustClock(t *testing.T) *SessionClock {
	t.Helper()
	sc, err := NewSessionClock("America/New_York")
	require.NoError(t, err)
	return sc
}

func nyMillis(t *testing.T, value string) int64 {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	ts, err := time.ParseInLocation("2006-01-02 15:04", value, loc)
	require.NoError(t, err)
	return ts.UnixMilli()
}

func TestSessionClassify(t *testing.T) {
	sc := mustClock(t)

	tests := []struct {
		when string
		want SessionClass
	}{
		{"2026-03-10 08:00", SessionPremarket},  // Tuesday premarket
		{"2026-03-10 09:29", SessionPremarket},
		{"2026-03-10 09:30", SessionRegular},
		{"2026-03-10 15:59", SessionRegular},
		{"2026-03-10 16:00", SessionAfterhours},
		{"2026-03-10 22:30", SessionAfterhours},
		{"2026-03-14 12:00", SessionWeekend}, // Saturday
		{"2026-03-15 12:00", SessionWeekend}, // Sunday
	}
	for _, tt := range tests {
		t.Run(tt.when, func(t *testing.T) {
			assert.Equal(t, tt.want, sc.Classify(nyMillis(t, tt.when)))
		})
	}
}

func TestOnlyAfterhoursBlocks(t *testing.T) {
	assert.False(t, SessionPremarket.Blocks())
	assert.False(t, SessionRegular.Blocks())
	assert.False(t, SessionWeekend.Blocks())
	assert.True(t, SessionAfterhours.Blocks())
}

func TestNewSessionClockRejectsBadZone(t *testing.T) {
	_, err := NewSessionClock("Mars/Olympus_Mons")
	assert.Error(t, err)
}
