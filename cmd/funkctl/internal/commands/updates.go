package commands

import (
	"context"
	"fmt"

	"github.com/wolfeidau/funkctl/internal/poller"
	"github.com/wolfeidau/funkctl/internal/upload"
)

// UpdatesCmd manages the distributed client binary.
type UpdatesCmd struct {
	Info   UpdatesInfoCmd   `cmd:"" help:"Show the current version"`
	Upload UpdatesUploadCmd `cmd:"" help:"Upload a new client executable"`
}

type UpdatesInfoCmd struct{}

func (c *UpdatesInfoCmd) Run(ctx context.Context, globals *Globals) error {
	return snapshot(ctx, globals, poller.Updates, 0)
}

type UpdatesUploadCmd struct {
	File      string `arg:"" type:"existingfile" help:"Path to the .exe file"`
	Version   string `required:"" help:"Version label"`
	Changelog string `help:"Release notes"`
}

func (c *UpdatesUploadCmd) Run(ctx context.Context, globals *Globals) error {
	e, err := globals.open(nil)
	if err != nil {
		return err
	}
	if err := e.requireSession(ctx); err != nil {
		return err
	}

	out := globals.stderr()
	p := upload.New(e.client, e.alerts,
		upload.WithProgress(func(p upload.Progress) {
			fmt.Fprintf(out, "\r%s", p)
			if p.Percent >= 100 {
				fmt.Fprintln(out)
			}
		}),
		upload.WithVersionRenderer(printer(globals.stdout())),
	)

	return reported(p.Upload(ctx, upload.Form{Path: c.File, Version: c.Version, Changelog: c.Changelog}))
}
