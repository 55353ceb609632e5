package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_EncodeDeterministic(t *testing.T) {
	codec := NewCodec(7)

	first := codec.Encode(37.5665, 126.9780)
	second := codec.Encode(37.5665, 126.9780)

	assert.Equal(t, first, second)
	assert.Len(t, first, 7)
}

func TestCodec_RoundTripBucketEquivalence(t *testing.T) {
	// Decoding yields the bucket center, not the original point. Re-encoding
	// that center must land in the same bucket.
	tests := []struct {
		name string
		lat  float64
		lng  float64
	}{
		{name: "seoul city hall", lat: 37.5665, lng: 126.9780},
		{name: "gangnam", lat: 37.4979, lng: 127.0276},
		{name: "southern hemisphere", lat: -33.8688, lng: 151.2093},
		{name: "western hemisphere", lat: 40.7128, lng: -74.0060},
		{name: "near equator", lat: 0.0001, lng: 0.0001},
	}

	codec := NewCodec(7)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix := codec.Encode(tt.lat, tt.lng)

			centerLat, centerLng, err := codec.Decode(prefix)
			require.NoError(t, err)

			assert.Equal(t, prefix, codec.Encode(centerLat, centerLng))
		})
	}
}

func TestCodec_DecodeInvalidPrefix(t *testing.T) {
	codec := NewCodec(7)

	tests := []struct {
		name   string
		prefix string
	}{
		{name: "empty", prefix: ""},
		{name: "illegal character a", prefix: "wydm9a1"},
		{name: "illegal character i", prefix: "wydmi"},
		{name: "uppercase", prefix: "WYDM9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := codec.Decode(tt.prefix)
			assert.Error(t, err)
		})
	}
}

func TestCodec_PrecisionControlsBucketSize(t *testing.T) {
	coarse := NewCodec(5)
	fine := NewCodec(7)

	// Two points ~100m apart share a precision-5 bucket but not necessarily
	// the same precision-7 bucket.
	a := coarse.Encode(37.5665, 126.9780)
	b := coarse.Encode(37.5670, 126.9785)
	assert.Equal(t, a, b)

	assert.Len(t, fine.Encode(37.5665, 126.9780), 7)
}
