package airplay_test

import (
	"testing"

	"github.com/airpnp/airpnp/airplay"
)

func TestHMSToSec(t *testing.T) {
	cases := map[string]float64{
		"0:00:00":         0,
		"0:01:30":         90,
		"1:02:03":         3723,
		"0:00:10.500":     10.5,
		"NOT_IMPLEMENTED": 0,
		"":                0,
		"0:99:00":         0,
	}
	for in, want := range cases {
		if got := airplay.HMSToSec(in); got != want {
			t.Fatalf("HMSToSec(%q) = %f, want %f", in, got, want)
		}
	}
}

func TestSecToHMS(t *testing.T) {
	cases := map[float64]string{
		0:      "0:00:00",
		90:     "0:01:30",
		3723:   "1:02:03",
		-5:     "0:00:00",
		59.99:  "0:00:59",
		7325.4: "2:02:05",
	}
	for in, want := range cases {
		if got := airplay.SecToHMS(in); got != want {
			t.Fatalf("SecToHMS(%f) = %q, want %q", in, got, want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	if airplay.HMSToSec(airplay.SecToHMS(3723)) != 3723 {
		t.Fatal("round trip failed")
	}
}
