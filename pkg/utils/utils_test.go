package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRoundedUnit(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{59, "59s"},
		{-30, "30s"},
		{60, "1m"},
		{3599, "59m"},
		{3600, "1h"},
		{7300, "2h"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRoundedUnit(tt.seconds), "seconds=%d", tt.seconds)
	}
}

func TestFormatElapsedMs(t *testing.T) {
	assert.Equal(t, "0:00", FormatElapsedMs(-5))
	assert.Equal(t, "0:59", FormatElapsedMs(59_999))
	assert.Equal(t, "25:00", FormatElapsedMs(25*60*1000))
	assert.Equal(t, "1:02:03", FormatElapsedMs((3600+120+3)*1000))
}

func TestMillisOf(t *testing.T) {
	v := 1499.5
	neg := -3.0
	assert.Equal(t, int64(0), MillisOf(nil))
	assert.Equal(t, int64(0), MillisOf(&neg))
	assert.Equal(t, int64(1500), MillisOf(&v))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "write t...", Truncate("write the quarterly report", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
}
