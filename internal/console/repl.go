package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/internal/poller"
	"github.com/wolfeidau/funkctl/internal/upload"
	"github.com/wolfeidau/funkctl/internal/users"
)

const helpText = `Befehle:
  1-6 | <view>                 Ansicht wechseln (dashboard users channels logs stats updates)
  r                            aktuelle Ansicht neu laden
  new                          neuen Benutzer anlegen
  edit <user>                  Benutzer bearbeiten
  name <user>                  Benutzername des neuen Benutzers setzen
  key [<key>]                  Funk-Key setzen, ohne Argument generieren
  ch <id>...                   Kanal-Berechtigung umschalten
  active on|off                Status setzen
  save | cancel                Formular speichern oder verwerfen
  delete <user>                Benutzer löschen
  tone <id>                    Test-Ton senden
  upload <file> <version> [changelog]
  health                       Serverstatus prüfen
  logout                       abmelden
  q                            beenden
`

var errQuit = errors.New("quit")

// REPL reads operator commands line by line. It also answers delete
// confirmations from the same input.
type REPL struct {
	console *Console
	out     io.Writer
	logout  func(ctx context.Context)

	lines chan string
	ctx   context.Context
}

// NewREPL starts reading lines from in.
func NewREPL(in io.Reader, out io.Writer) *REPL {
	r := &REPL{out: out, lines: make(chan string), ctx: context.Background()}
	go func() {
		defer close(r.lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			r.lines <- scanner.Text()
		}
	}()
	return r
}

// Attach binds the REPL to c. logout may be nil.
func (r *REPL) Attach(c *Console, logout func(ctx context.Context)) {
	r.console = c
	r.logout = logout
}

// Confirm implements users.Confirmer with a y/N prompt.
func (r *REPL) Confirm(prompt string) bool {
	fmt.Fprintf(r.out, "%s [y/N] ", prompt)
	line, ok := r.next()
	if !ok {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "j" || answer == "yes" || answer == "ja"
}

func (r *REPL) next() (string, bool) {
	select {
	case <-r.ctx.Done():
		return "", false
	case line, ok := <-r.lines:
		return line, ok
	}
}

// Run executes commands until q, end of input or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	r.ctx = ctx
	for {
		line, ok := r.next()
		if !ok {
			return nil
		}
		if err := r.Exec(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(r.out, "%v\n", err)
		}
	}
}

// Exec runs one command line.
func (r *REPL) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	c := r.console

	if v, err := poller.ParseView(cmd); err == nil {
		return c.ShowView(ctx, v)
	}

	log.Debug().Str("cmd", cmd).Strs("args", args).Msg("console command")

	switch cmd {
	case "q", "quit", "exit":
		return errQuit
	case "help", "?":
		fmt.Fprint(r.out, helpText)
	case "r", "refresh":
		c.Poller().Refresh(ctx)
	case "health":
		c.CheckHealth(ctx)
	case "logout":
		if r.logout != nil {
			r.logout(ctx)
		}
		return errQuit
	case "new":
		if err := c.ShowView(ctx, poller.Users); err != nil {
			return err
		}
		c.OpenForm(c.Users().NewForm())
	case "edit":
		if len(args) != 1 {
			return errors.New("usage: edit <user>")
		}
		if err := c.ShowView(ctx, poller.Users); err != nil {
			return err
		}
		form, err := c.Users().Get(ctx, args[0])
		if err != nil {
			return nil
		}
		c.OpenForm(form)
	case "name":
		return r.withForm(func(f *users.Form) error {
			if len(args) != 1 {
				return errors.New("usage: name <user>")
			}
			return f.SetUsername(args[0])
		})
	case "key":
		return r.withForm(func(f *users.Form) error {
			if f.Editing() {
				return errors.New("funk key cannot be changed when editing")
			}
			if len(args) == 0 {
				f.FunkKey = users.GenerateFunkKey()
				return nil
			}
			f.FunkKey = args[0]
			return nil
		})
	case "ch":
		return r.withForm(func(f *users.Form) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if err := f.Toggle(id); err != nil {
					return err
				}
			}
			return nil
		})
	case "active":
		return r.withForm(func(f *users.Form) error {
			if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
				return errors.New("usage: active on|off")
			}
			f.IsActive = args[0] == "on"
			return nil
		})
	case "save":
		form := c.Form()
		if form == nil {
			return errors.New("no form open")
		}
		if err := c.Users().Save(ctx, form); err == nil {
			c.OpenForm(nil)
		}
	case "cancel":
		c.CloseForm()
	case "delete":
		if len(args) != 1 {
			return errors.New("usage: delete <user>")
		}
		_ = c.Users().Delete(ctx, args[0])
	case "tone":
		ids, err := parseIDs(args)
		if err != nil || len(ids) != 1 {
			return errors.New("usage: tone <id>")
		}
		go func() { _ = c.Tones().Send(ctx, ids[0]) }()
	case "upload":
		if len(args) < 2 {
			return errors.New("usage: upload <file> <version> [changelog]")
		}
		if err := c.ShowView(ctx, poller.Updates); err != nil {
			return err
		}
		form := upload.Form{Path: args[0], Version: args[1], Changelog: strings.Join(args[2:], " ")}
		go func() { _ = c.Uploads().Upload(ctx, form) }()
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func (r *REPL) withForm(fn func(f *users.Form) error) error {
	return r.console.UpdateForm(fn)
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid channel id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
