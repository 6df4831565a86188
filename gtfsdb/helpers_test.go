package gtfsdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStopID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
		ok    bool
	}{
		{"integer string", "100032", 100032, true},
		{"float formatted", "100032.0", 100032, true},
		{"whitespace", " 900000 ", 900000, true},
		{"empty", "", 0, false},
		{"garbage", "yard-a", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeStopID(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseGTFSTime(t *testing.T) {
	secs, err := ParseGTFSTime("08:05:00")
	assert.NoError(t, err)
	assert.Equal(t, int64(8*3600+5*60), secs)

	// Post-midnight trips keep running past 24:00:00
	secs, err = ParseGTFSTime("25:01:30")
	assert.NoError(t, err)
	assert.Equal(t, int64(25*3600+60+30), secs)

	_, err = ParseGTFSTime("not-a-time")
	assert.Error(t, err)

	_, err = ParseGTFSTime("")
	assert.Error(t, err)
}

func TestFormatGTFSTime(t *testing.T) {
	assert.Equal(t, "08:05:00", FormatGTFSTime(8*3600+5*60))
	assert.Equal(t, "25:01:30", FormatGTFSTime(25*3600+60+30))
	assert.Equal(t, "00:00:00", FormatGTFSTime(0))
}
