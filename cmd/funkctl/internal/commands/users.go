package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfeidau/funkctl/internal/users"
)

// UsersCmd manages user accounts.
type UsersCmd struct {
	List   UsersListCmd   `cmd:"" help:"List all users"`
	Get    UsersGetCmd    `cmd:"" help:"Show one user"`
	Create UsersCreateCmd `cmd:"" help:"Create a user"`
	Update UsersUpdateCmd `cmd:"" help:"Change channels or status of a user"`
	Delete UsersDeleteCmd `cmd:"" help:"Delete a user"`
	Genkey UsersGenkeyCmd `cmd:"" help:"Print a new random funk key"`
}

// controller opens a verified session and returns a users controller that
// prints tables to stdout.
func controller(ctx context.Context, globals *Globals, opts ...users.Option) (*users.Controller, error) {
	e, err := globals.open(nil)
	if err != nil {
		return nil, err
	}
	if err := e.requireSession(ctx); err != nil {
		return nil, err
	}

	opts = append([]users.Option{users.WithRenderer(printer(globals.stdout()))}, opts...)
	return users.NewController(e.client, e.alerts, opts...), nil
}

// afterWrite skips the list reload after a change.
var afterWrite = users.WithReload(func(context.Context) {})

type UsersListCmd struct{}

func (c *UsersListCmd) Run(ctx context.Context, globals *Globals) error {
	ctrl, err := controller(ctx, globals)
	if err != nil {
		return err
	}
	return reported(ctrl.List(ctx))
}

type UsersGetCmd struct {
	Username string `arg:"" help:"Username"`
}

func (c *UsersGetCmd) Run(ctx context.Context, globals *Globals) error {
	ctrl, err := controller(ctx, globals)
	if err != nil {
		return err
	}

	form, err := ctrl.Get(ctx, c.Username)
	if err != nil {
		return reported(err)
	}

	fmt.Fprint(globals.stdout(), form.String())
	return nil
}

type UsersCreateCmd struct {
	Username string `arg:"" help:"Username"`
	FunkKey  string `help:"Funk key, generated when empty"`
	Channel  []int  `help:"Allowed channel id, repeatable" sep:","`
}

func (c *UsersCreateCmd) Run(ctx context.Context, globals *Globals) error {
	ctrl, err := controller(ctx, globals, afterWrite)
	if err != nil {
		return err
	}

	key := c.FunkKey
	if key == "" {
		key = users.GenerateFunkKey()
	}

	if err := ctrl.Create(ctx, c.Username, key, c.Channel); err != nil {
		return reported(err)
	}

	fmt.Fprintf(globals.stdout(), "Funk-Key: %s\n", key)
	return nil
}

type UsersUpdateCmd struct {
	Username      string `arg:"" help:"Username"`
	Channel       []int  `help:"Allowed channel id, repeatable; replaces the current set" sep:","`
	ClearChannels bool   `help:"Remove every channel permission"`
	Active        *bool  `help:"Account status, --active=false deactivates"`
}

func (c *UsersUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	ctrl, err := controller(ctx, globals, afterWrite)
	if err != nil {
		return err
	}

	form, err := ctrl.Get(ctx, c.Username)
	if err != nil {
		return reported(err)
	}

	ids := form.Selected()
	switch {
	case c.ClearChannels:
		ids = []int{}
	case len(c.Channel) > 0:
		ids = c.Channel
	}

	active := form.IsActive
	if c.Active != nil {
		active = *c.Active
	}

	return reported(ctrl.Update(ctx, c.Username, ids, active))
}

type UsersDeleteCmd struct {
	Username string `arg:"" help:"Username"`
	Yes      bool   `short:"y" help:"Skip the confirmation prompt"`
}

func (c *UsersDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	confirm := users.ConfirmFunc(func(prompt string) bool {
		if c.Yes {
			return true
		}
		fmt.Fprintf(globals.stderr(), "%s [y/N] ", prompt)
		line, _ := bufio.NewReader(globals.stdin()).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes", "j", "ja":
			return true
		}
		return false
	})

	ctrl, err := controller(ctx, globals, afterWrite, users.WithConfirmer(confirm))
	if err != nil {
		return err
	}

	err = ctrl.Delete(ctx, c.Username)
	if errors.Is(err, users.ErrCancelled) {
		fmt.Fprintln(globals.stdout(), "Cancelled")
		return nil
	}
	return reported(err)
}

type UsersGenkeyCmd struct{}

func (c *UsersGenkeyCmd) Run(ctx context.Context, globals *Globals) error {
	fmt.Fprintln(globals.stdout(), users.GenerateFunkKey())
	return nil
}
