package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/function61/arkmon/pkg/asapi"
	"github.com/function61/gokit/assert"
)

func TestRender(t *testing.T) {
	artifact := Render(&asapi.ServerRecord{
		Name:       "ASA-Official-2154",
		NumPlayers: 12,
		MaxPlayers: 70,
		MapName:    "TheIsland_WP",
		DayTime:    "850",
		IP:         "5.6.7.8",
		Port:       "7777",
	}, "2.0")

	assert.EqualJson(t, artifact.Embed, `{
  "title": "ASA-Official-2154",
  "color": 3066993,
  "fields": [
    {
      "name": "Players Online",
      "value": "12/70",
      "inline": true
    },
    {
      "name": "Map",
      "value": "TheIsland_WP",
      "inline": true
    },
    {
      "name": "Day",
      "value": "850",
      "inline": true
    },
    {
      "name": "Address",
      "value": "5.6.7.8:7777",
      "inline": true
    },
    {
      "name": "Server Rates",
      "value": "2.0x",
      "inline": true
    }
  ],
  "footer": {
    "text": "Official Server Status"
  }
}`)
}

func TestPopulationColor(t *testing.T) {
	assert.Assert(t, populationColor(10, 70) == colorGreen)
	assert.Assert(t, populationColor(35, 70) == colorYellow)
	assert.Assert(t, populationColor(70, 70) == colorRed)
	assert.Assert(t, populationColor(0, 0) == colorGreen)
}

func TestCompanionName(t *testing.T) {
	assert.EqualString(t, CompanionName("2154", 42, 70), "2154: 42/70")
}

func TestDiscordSinkClassifiesTargetGone(t *testing.T) {
	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Unknown Message", "code": 10008}`, http.StatusNotFound)
	}))
	defer gone.Close()

	sink := NewDiscordSink("dummytoken", nil)
	sink.apiBase = gone.URL

	err := sink.Update(context.Background(), Location{ChannelId: "123", MessageId: "456"}, Render(&asapi.ServerRecord{}, "1.0"))
	assert.Assert(t, err == ErrTargetGone)
}

func TestDiscordSinkPublish(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id": "998877"}`))
	}))
	defer srv.Close()

	sink := NewDiscordSink("dummytoken", nil)
	sink.apiBase = srv.URL

	messageId, err := sink.Publish(context.Background(), "123", Render(&asapi.ServerRecord{Name: "x"}, "1.0"))
	assert.Ok(t, err)
	assert.EqualString(t, messageId, "998877")
	assert.EqualString(t, gotAuth, "Bot dummytoken")
}
