package main

import (
	"testing"

	"github.com/function61/arkmon/pkg/asapi"
	"github.com/function61/gokit/assert"
)

func TestBusiestRecord(t *testing.T) {
	records := []asapi.ServerRecord{
		{Name: "NA-PVP-TheIsland2154", NumPlayers: 42, MaxPlayers: 70},
		{Name: "EU-PVP-TheIsland9002", NumPlayers: 69, MaxPlayers: 70},
		{Name: "NA-PVE-TheCenter5231", NumPlayers: 12, MaxPlayers: 70},
	}

	assert.EqualString(t, busiestRecord(records).Name, "EU-PVP-TheIsland9002")

	assert.Assert(t, busiestRecord(nil) == nil)
}
