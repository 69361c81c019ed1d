package asapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/function61/gokit/assert"
)

func TestRatePoller(t *testing.T) {
	ctx := context.Background()

	config := "BabyMatureSpeedMultiplier=1.0\nXPMultiplier=1.0\nHarvestAmountMultiplier=1.0\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(config))
	}))
	defer srv.Close()

	poller := NewRatePoller(srv.URL, nil)

	assert.EqualString(t, poller.Current(), "1.0")

	// first observation after startup is baseline, not a change
	changed, _, rate, err := poller.Poll(ctx)
	assert.Ok(t, err)
	assert.Assert(t, !changed)
	assert.EqualString(t, rate, "1.0")

	// same value again => still no change
	changed, _, _, err = poller.Poll(ctx)
	assert.Ok(t, err)
	assert.Assert(t, !changed)

	config = "XPMultiplier=2.0\n"

	changed, previous, rate, err := poller.Poll(ctx)
	assert.Ok(t, err)
	assert.Assert(t, changed)
	assert.EqualString(t, previous, "1.0")
	assert.EqualString(t, rate, "2.0")
	assert.EqualString(t, poller.Current(), "2.0")
}

func TestRatePollerKeepsRateOnFailure(t *testing.T) {
	ctx := context.Background()

	responses := []func(w http.ResponseWriter){
		func(w http.ResponseWriter) { w.Write([]byte("XPMultiplier=3.0\n")) },
		func(w http.ResponseWriter) { http.Error(w, "nope", http.StatusBadGateway) },
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next := responses[0]
		responses = responses[1:]
		next(w)
	}))
	defer srv.Close()

	poller := NewRatePoller(srv.URL, nil)

	_, _, _, err := poller.Poll(ctx)
	assert.Ok(t, err)

	_, _, _, err = poller.Poll(ctx)
	assert.Assert(t, err != nil)

	assert.EqualString(t, poller.Current(), "3.0")
}

func TestExtractMultiplier(t *testing.T) {
	tcs := []struct {
		input  string
		output string
	}{
		{
			"XPMultiplier=1.5",
			"1.5",
		},
		{
			"TamingSpeedMultiplier=2.0\nXPMultiplier = 2.0 \nMatingIntervalMultiplier=0.5",
			"2.0",
		},
		{
			"; no rates in here at all",
			"1.0",
		},
		{
			"XPMultiplier",
			"1.0",
		},
		{
			"",
			"1.0",
		},
	}

	for _, tc := range tcs {
		tc := tc // pin
		t.Run(tc.input, func(t *testing.T) {
			assert.EqualString(t, extractMultiplier(tc.input), tc.output)
		})
	}
}
