package asapi

import (
	"context"
	"io/ioutil"
	"log"
	"strings"
	"sync"

	"github.com/function61/gokit/ezhttp"
	"github.com/function61/gokit/logex"
)

const defaultRate = "1.0"

// RatePoller polls dynamicconfig.ini for the global XP multiplier. The value
// is not persisted across restarts: the first successful poll after startup
// establishes the baseline and is never reported as a change.
type RatePoller struct {
	url  string
	logl *logex.Leveled

	mu       sync.Mutex
	current  string
	observed bool
}

func NewRatePoller(url string, logger *log.Logger) *RatePoller {
	return &RatePoller{
		url:     url,
		logl:    logex.Levels(logger),
		current: defaultRate,
	}
}

// "1.0" until the first successful poll
func (p *RatePoller) Current() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.current
}

// on failure the previously observed rate is retained
func (p *RatePoller) Poll(ctx context.Context) (bool, string, string, error) {
	resp, err := ezhttp.Get(ctx, p.url)
	if err != nil {
		p.logl.Error.Printf("Poll: %v", err)
		return false, "", "", err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		p.logl.Error.Printf("Poll: %v", err)
		return false, "", "", err
	}

	rate := extractMultiplier(string(body))

	p.mu.Lock()
	defer p.mu.Unlock()

	previous := p.current

	changed := p.observed && rate != previous

	p.current = rate
	p.observed = true

	if changed {
		p.logl.Info.Printf("rate changed: %s -> %s", previous, rate)
	}

	return changed, previous, rate, nil
}

// the blob is INI-style but not guaranteed well-formed, so this is a plain
// line scan: first line mentioning XPMultiplier, value after the first "="
func extractMultiplier(config string) string {
	for _, line := range strings.Split(config, "\n") {
		if !strings.Contains(line, "XPMultiplier") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		return strings.TrimSpace(parts[1])
	}

	return defaultRate
}
