// Talks to the ARK: Survival Ascended CDN: the official server list and the
// dynamicconfig (rates) endpoint.
package asapi

import (
	"encoding/json"
)

const (
	OfficialServerListURL = "https://cdn2.arkdedicated.com/servers/asa/officialserverlist.json"
	DynamicConfigURL      = "https://cdn2.arkdedicated.com/asa/dynamicconfig.ini"
)

// one server from the official list. field names follow the upstream payload.
type ServerRecord struct {
	Name       string `json:"Name"`
	NumPlayers int    `json:"NumPlayers"`
	MaxPlayers int    `json:"MaxPlayers"`
	MapName    string `json:"MapName"`
	DayTime    string `json:"DayTime"`
	IP         string `json:"IP"`
	Port       string `json:"Port"`
}

// upstream serves Port as a bare number
type serverRecordWire struct {
	Name       string      `json:"Name"`
	NumPlayers int         `json:"NumPlayers"`
	MaxPlayers int         `json:"MaxPlayers"`
	MapName    string      `json:"MapName"`
	DayTime    string      `json:"DayTime"`
	IP         string      `json:"IP"`
	Port       json.Number `json:"Port"`
}

func (w *serverRecordWire) toRecord() ServerRecord {
	return ServerRecord{
		Name:       w.Name,
		NumPlayers: w.NumPlayers,
		MaxPlayers: w.MaxPlayers,
		MapName:    w.MapName,
		DayTime:    w.DayTime,
		IP:         w.IP,
		Port:       w.Port.String(),
	}
}
