package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWouldExceedCapacity(t *testing.T) {
	cases := []struct {
		name      string
		capacity  float64
		assigned  float64
		candidate float64
		want      bool
	}{
		{"empty vehicle accepts fitting order", 200, 0, 80, false},
		{"exact fit is allowed", 200, 150, 50, false},
		{"one pound over is rejected", 200, 150, 51, true},
		{"zero-weight order always fits", 200, 200, 0, false},
		{"full vehicle rejects any weight", 200, 200, 0.5, true},
		{"staged load counts toward the limit", 200, 170, 50, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := WouldExceedCapacity(tc.capacity, tc.assigned, tc.candidate)
			assert.Equal(t, tc.want, got)
		})
	}
}
