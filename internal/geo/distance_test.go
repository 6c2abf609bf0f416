package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistanceKm_ZeroForSamePoint(t *testing.T) {
	require.Zero(t, DistanceKm(25.6866, -100.3161, 25.6866, -100.3161))
}

func TestDistanceKm_KnownCityPair(t *testing.T) {
	// Monterrey to Guadalajara is roughly 540 km great-circle.
	d := DistanceKm(25.6866, -100.3161, 20.6597, -103.3496)
	require.InDelta(t, 540, d, 20)
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := DistanceKm(19.4326, -99.1332, 25.6866, -100.3161)
	b := DistanceKm(25.6866, -100.3161, 19.4326, -99.1332)
	require.InDelta(t, a, b, 1e-9)
	require.GreaterOrEqual(t, a, 0.0)
}

func TestInMexico(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{name: "monterrey", lat: 25.6866, lon: -100.3161, want: true},
		{name: "cdmx", lat: 19.4326, lon: -99.1332, want: true},
		{name: "new england", lat: 45, lon: -70, want: false},
		{name: "south of box", lat: 10, lon: -100, want: false},
		{name: "east of box", lat: 20, lon: -80, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, InMexico(tc.lat, tc.lon))
		})
	}
}
