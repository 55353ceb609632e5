package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDistance(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		wantKm     float64
		tolerance  float64
	}{
		{
			name: "same point",
			lat1: 37.5665, lon1: 126.9780,
			lat2: 37.5665, lon2: 126.9780,
			wantKm: 0, tolerance: 0.001,
		},
		{
			name: "seoul city hall to gangnam station",
			lat1: 37.5665, lon1: 126.9780,
			lat2: 37.4979, lon2: 127.0276,
			wantKm: 8.8, tolerance: 0.5,
		},
		{
			name: "seoul to busan",
			lat1: 37.5665, lon1: 126.9780,
			lat2: 35.1796, lon2: 129.0756,
			wantKm: 325, tolerance: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.wantKm, got, tt.tolerance)
		})
	}
}

func TestMilesToKm(t *testing.T) {
	tests := []struct {
		miles float64
		want  float64
	}{
		{miles: 0, want: 0},
		{miles: 1, want: 1.609344},
		{miles: 5, want: 8.04672},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, MilesToKm(tt.miles), 1e-9, "%.1f miles", tt.miles)
	}
}
