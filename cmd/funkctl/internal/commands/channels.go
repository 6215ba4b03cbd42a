package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/funkctl/internal/channels"
	"github.com/wolfeidau/funkctl/internal/poller"
)

// ChannelsCmd shows channel usage and sends test tones.
type ChannelsCmd struct {
	List     ChannelsListCmd     `cmd:"" help:"List every channel with usage counters"`
	TestTone ChannelsTestToneCmd `cmd:"" name:"test-tone" help:"Play a test tone on a channel"`
}

type ChannelsListCmd struct{}

func (c *ChannelsListCmd) Run(ctx context.Context, globals *Globals) error {
	return snapshot(ctx, globals, poller.Channels, 0)
}

type ChannelsTestToneCmd struct {
	ID int `arg:"" help:"Channel id"`
}

func (c *ChannelsTestToneCmd) Run(ctx context.Context, globals *Globals) error {
	if !channels.Exists(c.ID) {
		return fmt.Errorf("%w: %d", channels.ErrUnknownChannel, c.ID)
	}

	e, err := globals.open(nil)
	if err != nil {
		return err
	}
	if err := e.requireSession(ctx); err != nil {
		return err
	}

	tones := channels.NewTones(e.client, e.alerts)
	return reported(tones.Send(ctx, c.ID))
}
