package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"time"

	"github.com/function61/gokit/logex"
)

const discordApiBase = "https://discord.com/api/v10"

// DiscordSink publishes dashboards over the Discord REST API with bot-token
// auth. 404-class responses are classified as ErrTargetGone so the registry
// can prune monitors whose message or channel was deleted out from under us.
type DiscordSink struct {
	apiBase string
	token   string
	client  *http.Client
	logl    *logex.Leveled
}

func NewDiscordSink(botToken string, logger *log.Logger) *DiscordSink {
	return &DiscordSink{
		apiBase: discordApiBase,
		token:   botToken,
		client:  &http.Client{Timeout: 15 * time.Second},
		logl:    logex.Levels(logger),
	}
}

type messagePayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

type messageCreated struct {
	Id string `json:"id"`
}

func (d *DiscordSink) Publish(ctx context.Context, channelId string, artifact *Artifact) (string, error) {
	created := messageCreated{}

	if err := d.send(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/channels/%s/messages", d.apiBase, channelId),
		&messagePayload{Embeds: []Embed{artifact.Embed}},
		&created,
	); err != nil {
		return "", err
	}

	return created.Id, nil
}

func (d *DiscordSink) Update(ctx context.Context, loc Location, artifact *Artifact) error {
	return d.send(
		ctx,
		http.MethodPatch,
		fmt.Sprintf("%s/channels/%s/messages/%s", d.apiBase, loc.ChannelId, loc.MessageId),
		&messagePayload{Embeds: []Embed{artifact.Embed}},
		nil)
}

func (d *DiscordSink) Delete(ctx context.Context, loc Location) error {
	return d.send(
		ctx,
		http.MethodDelete,
		fmt.Sprintf("%s/channels/%s/messages/%s", d.apiBase, loc.ChannelId, loc.MessageId),
		nil,
		nil)
}

func (d *DiscordSink) RenameCompanion(ctx context.Context, channelId string, name string) error {
	return d.send(
		ctx,
		http.MethodPatch,
		fmt.Sprintf("%s/channels/%s", d.apiBase, channelId),
		&struct {
			Name string `json:"name"`
		}{name},
		nil)
}

func (d *DiscordSink) DeleteCompanion(ctx context.Context, channelId string) error {
	return d.send(
		ctx,
		http.MethodDelete,
		fmt.Sprintf("%s/channels/%s", d.apiBase, channelId),
		nil,
		nil)
}

func (d *DiscordSink) Notify(ctx context.Context, channelId string, message string) error {
	return d.send(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/channels/%s/messages", d.apiBase, channelId),
		&messagePayload{Content: message},
		nil)
}

func (d *DiscordSink) send(ctx context.Context, method string, url string, body interface{}, responseTo interface{}) error {
	var reqBody *bytes.Reader = bytes.NewReader(nil)
	if body != nil {
		serialized, err := json.Marshal(body)
		if err != nil {
			return err
		}

		reqBody = bytes.NewReader(serialized)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+d.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrTargetGone
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %d: %s", method, url, resp.StatusCode, respBody)
	}

	if responseTo != nil {
		return json.Unmarshal(respBody, responseTo)
	}

	return nil
}
