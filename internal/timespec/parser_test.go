package timespec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = orig })
}

func TestParse(t *testing.T) {
	fixed := time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)
	freezeClock(t, fixed)

	tests := []struct {
		name    string
		spec    string
		want    time.Time
		wantErr string
	}{
		{name: "hours", spec: "1h", want: fixed.Add(-time.Hour)},
		{name: "compound duration", spec: "1h30m", want: fixed.Add(-90 * time.Minute)},
		{name: "days", spec: "7d", want: fixed.Add(-7 * 24 * time.Hour)},
		{name: "surrounding space", spec: " 30m ", want: fixed.Add(-30 * time.Minute)},
		{name: "rfc3339", spec: "2025-10-01T08:00:00Z", want: time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)},
		{name: "empty", spec: "", wantErr: "empty time specification"},
		{name: "garbage", spec: "yesterday", wantErr: "invalid time specification"},
		{name: "negative days", spec: "-2d", wantErr: "invalid time specification"},
		{name: "negative duration", spec: "-1h", wantErr: "negative duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.spec)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.UnixMilli(), got)
		})
	}
}

func TestParseRange(t *testing.T) {
	fixed := time.Date(2025, 10, 29, 12, 0, 0, 0, time.UTC)
	freezeClock(t, fixed)

	since, until, err := ParseRange("2d", "1h")
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(-48*time.Hour).UnixMilli(), since)
	assert.Equal(t, fixed.Add(-time.Hour).UnixMilli(), until)

	since, until, err = ParseRange("", "")
	require.NoError(t, err)
	assert.Zero(t, since)
	assert.Zero(t, until)

	_, _, err = ParseRange("1h", "2h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--since must be before --until")

	_, _, err = ParseRange("nope", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --since")

	_, _, err = ParseRange("", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --until")
}
