package scan

import (
	"fmt"
	"strings"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// geohash base32 alphabet, used to validate prefixes before decoding
const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Codec converts between coordinates and geohash bucket prefixes at a fixed
// precision. Decoding returns the bucket center, not the originally encoded
// point: round-trip is bucket equivalence.
type Codec struct {
	precision int
}

func NewCodec(precision int) *Codec {
	return &Codec{precision: precision}
}

func (c *Codec) Precision() int {
	return c.precision
}

func (c *Codec) Encode(lat, lng float64) string {
	return geohash.EncodeWithPrecision(lat, lng, c.precision)
}

// Decode returns the center coordinates of the bucket named by prefix.
func (c *Codec) Decode(prefix string) (float64, float64, error) {
	if prefix == "" {
		return 0, 0, fmt.Errorf("empty geohash prefix")
	}
	for _, r := range prefix {
		if !strings.ContainsRune(geohashAlphabet, r) {
			return 0, 0, fmt.Errorf("invalid geohash prefix: %q", prefix)
		}
	}

	box := geohash.Decode(prefix)
	if box == nil {
		return 0, 0, fmt.Errorf("failed to decode geohash prefix: %q", prefix)
	}
	center := box.Center()
	return center.Lat(), center.Lng(), nil
}
