package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/internal/console"
	"github.com/wolfeidau/funkctl/internal/poller"
)

// printDisplay writes every rendered view straight to w.
type printDisplay struct {
	mu sync.Mutex
	w  io.Writer
}

func (d *printDisplay) Update(_ poller.View, content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.w, content)
	if content != "" && !strings.HasSuffix(content, "\n") {
		fmt.Fprintln(d.w)
	}
}

func (d *printDisplay) SetActive(poller.View) {}

func (d *printDisplay) SetStatus(status string) {}

// snapshot loads a single view once and prints it.
func snapshot(ctx context.Context, globals *Globals, v poller.View, logLimit int) error {
	e, err := globals.open(nil)
	if err != nil {
		return err
	}
	if err := e.requireSession(ctx); err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		loadErr error
	)
	c := console.New(e.client, e.alerts, &printDisplay{w: globals.stdout()}, console.Config{
		LogLimit: logLimit,
		Poller: []poller.Option{
			poller.WithInitialView(v),
			poller.WithErrorHandler(func(v poller.View, err error) {
				mu.Lock()
				loadErr = err
				mu.Unlock()
			}),
		},
	})

	if err := c.ShowView(ctx, v); err != nil {
		return err
	}
	c.Poller().Wait()

	mu.Lock()
	defer mu.Unlock()
	if loadErr != nil {
		log.Debug().Err(loadErr).Str("view", string(v)).Msg("snapshot failed")
		return reported(loadErr)
	}
	return nil
}

// LogsCmd prints the connection log.
type LogsCmd struct {
	Limit int `help:"Number of entries to show, at most 100" default:"100" env:"FUNKCTL_LIMIT"`
}

func (c *LogsCmd) Run(ctx context.Context, globals *Globals) error {
	return snapshot(ctx, globals, poller.Logs, c.Limit)
}

// StatsCmd prints traffic statistics.
type StatsCmd struct{}

func (c *StatsCmd) Run(ctx context.Context, globals *Globals) error {
	return snapshot(ctx, globals, poller.Stats, 0)
}
