package dashboard

import (
	"fmt"

	"github.com/function61/arkmon/pkg/asapi"
)

// Discord embed wire format (the subset we use)
type Embed struct {
	Title  string       `json:"title"`
	Color  int          `json:"color"`
	Fields []EmbedField `json:"fields,omitempty"`
	Footer *EmbedFooter `json:"footer,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// a rendered dashboard, ready for the sink to publish
type Artifact struct {
	Embed Embed
}

const (
	colorGreen  = 0x2ecc71
	colorYellow = 0xf1c40f
	colorRed    = 0xe74c3c
)

func Render(record *asapi.ServerRecord, rates string) *Artifact {
	return &Artifact{
		Embed: Embed{
			Title: record.Name,
			Color: populationColor(record.NumPlayers, record.MaxPlayers),
			Fields: []EmbedField{
				{Name: "Players Online", Value: fmt.Sprintf("%d/%d", record.NumPlayers, record.MaxPlayers), Inline: true},
				{Name: "Map", Value: record.MapName, Inline: true},
				{Name: "Day", Value: record.DayTime, Inline: true},
				{Name: "Address", Value: record.IP + ":" + record.Port, Inline: true},
				{Name: "Server Rates", Value: rates + "x", Inline: true},
			},
			Footer: &EmbedFooter{Text: "Official Server Status"},
		},
	}
}

func CompanionName(key string, numPlayers int, maxPlayers int) string {
	return fmt.Sprintf("%s: %d/%d", key, numPlayers, maxPlayers)
}

func populationColor(numPlayers int, maxPlayers int) int {
	if maxPlayers <= 0 {
		return colorGreen
	}

	switch {
	case numPlayers >= maxPlayers:
		return colorRed
	case numPlayers*2 >= maxPlayers:
		return colorYellow
	default:
		return colorGreen
	}
}
