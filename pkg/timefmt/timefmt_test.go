package timefmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinutes(t *testing.T) {
	tests := []struct {
		name    string
		minutes float64
		want    string
	}{
		{"zero", 0, "0 minutes"},
		{"negative clamps to zero", -10, "0 minutes"},
		{"one minute singular", 1, "1 minute"},
		{"under an hour", 45, "45 minutes"},
		{"rounds fractional minutes", 44.6, "45 minutes"},
		{"exactly one hour", 60, "1 hour"},
		{"hours and minutes", 125, "2 hours, 5 minutes"},
		{"plural hours", 120, "2 hours"},
		{"exactly one day", 1440, "1 day"},
		{"day hour minute", 1501, "1 day, 1 hour, 1 minute"},
		{"days without hours keeps minutes", 2885, "2 days, 5 minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Minutes(tt.minutes))
		})
	}
}
