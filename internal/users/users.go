// Package users implements the list, get, create, update and delete flows
// over user accounts. Every outcome is posted to the alert channel and
// successful mutations reload the list from the server.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/funkctl/internal/alert"
	"github.com/wolfeidau/funkctl/internal/client"
	"github.com/wolfeidau/funkctl/internal/format"
	"github.com/wolfeidau/funkctl/internal/models"
	"github.com/wolfeidau/funkctl/internal/table"
)

// ErrCancelled is returned when the operator declines a confirmation.
var ErrCancelled = errors.New("cancelled by operator")

// API is the user resource of the backend.
type API interface {
	ListUsers(ctx context.Context) (*models.UserList, error)
	GetUser(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, req models.CreateUserRequest) error
	UpdateUser(ctx context.Context, username string, req models.UpdateUserRequest) error
	DeleteUser(ctx context.Context, username string) error
}

// Confirmer asks the operator before destructive actions.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// EditTracker holds the user whose form is open. The console's dashboard
// state implements it so the controller keeps no copy of its own.
type EditTracker interface {
	SetEditTarget(username string)
	ClearEditTarget()
	EditTarget() (string, bool)
}

// Option configures a Controller.
type Option func(*Controller)

// WithRenderer sets where the user table is rendered.
func WithRenderer(r table.Renderer) Option {
	return func(c *Controller) {
		c.renderer = r
	}
}

// WithConfirmer sets the delete confirmation prompt.
func WithConfirmer(cf Confirmer) Option {
	return func(c *Controller) {
		c.confirm = cf
	}
}

// WithEditTracker sets the owner of the edit target.
func WithEditTracker(t EditTracker) Option {
	return func(c *Controller) {
		c.edits = t
	}
}

// WithReload replaces the list reload that follows a successful mutation.
func WithReload(fn func(ctx context.Context)) Option {
	return func(c *Controller) {
		c.reload = fn
	}
}

// Controller runs the user flows.
type Controller struct {
	api      API
	alerts   alert.Notifier
	renderer table.Renderer
	confirm  Confirmer
	edits    EditTracker
	reload   func(ctx context.Context)
}

// NewController creates a controller. Without a confirmer every delete is
// refused.
func NewController(api API, alerts alert.Notifier, opts ...Option) *Controller {
	c := &Controller{
		api:      api,
		alerts:   alerts,
		renderer: table.Discard,
		confirm:  ConfirmFunc(func(string) bool { return false }),
		edits:    &editTarget{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reload == nil {
		c.reload = func(ctx context.Context) { _ = c.List(ctx) }
	}
	return c
}

// Fetch loads every user. A failure is alerted and returned.
func (c *Controller) Fetch(ctx context.Context) ([]models.User, error) {
	list, err := c.api.ListUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load users")
		c.alerts.Notify("Fehler beim Laden der Benutzer", alert.Error)
		return nil, err
	}
	return list.Users, nil
}

// List fetches and renders the user table.
func (c *Controller) List(ctx context.Context) error {
	users, err := c.Fetch(ctx)
	if err != nil {
		return err
	}
	c.renderer.Render(Table(users))
	return nil
}

// Get loads username into an edit form and marks it as the edit target.
func (c *Controller) Get(ctx context.Context, username string) (*Form, error) {
	u, err := c.api.GetUser(ctx, username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to load user")
		c.alerts.Notify("Fehler beim Laden des Benutzers", alert.Error)
		return nil, err
	}

	c.edits.SetEditTarget(u.Username)
	return EditForm(u), nil
}

// NewForm opens a blank create form.
func (c *Controller) NewForm() *Form {
	c.edits.ClearEditTarget()
	return NewForm()
}

// Close discards the open form.
func (c *Controller) Close() {
	c.edits.ClearEditTarget()
}

// Save submits f as an update when a user is being edited, otherwise as a
// create.
func (c *Controller) Save(ctx context.Context, f *Form) error {
	if target, ok := c.edits.EditTarget(); ok {
		return c.Update(ctx, target, f.Selected(), f.IsActive)
	}
	return c.Create(ctx, f.Username, f.FunkKey, f.Selected())
}

// Create adds a user. An empty funkKey is replaced by a generated one and
// an empty channel set is valid.
func (c *Controller) Create(ctx context.Context, username, funkKey string, channelIDs []int) error {
	if funkKey == "" {
		funkKey = GenerateFunkKey()
	}

	ids, err := validateCreate(username, funkKey, channelIDs)
	if err != nil {
		c.alerts.Notify(err.Error(), alert.Error)
		return err
	}

	err = c.api.CreateUser(ctx, models.CreateUserRequest{
		Username:        username,
		FunkKey:         funkKey,
		AllowedChannels: ids,
	})
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to create user")
		c.alerts.Notify(client.Message(err, "Fehler beim Speichern", "Fehler beim Speichern des Benutzers"), alert.Error)
		return err
	}

	log.Info().Str("username", username).Ints("channels", ids).Msg("user created")

	c.alerts.Notify("Benutzer erstellt", alert.Success)
	c.done(ctx)
	return nil
}

// Update changes only the channel set and active flag of username.
func (c *Controller) Update(ctx context.Context, username string, channelIDs []int, isActive bool) error {
	ids, err := validateChannels(channelIDs)
	if err != nil {
		c.alerts.Notify(err.Error(), alert.Error)
		return err
	}

	err = c.api.UpdateUser(ctx, username, models.UpdateUserRequest{
		AllowedChannels: ids,
		IsActive:        isActive,
	})
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to update user")
		c.alerts.Notify(client.Message(err, "Fehler beim Speichern", "Fehler beim Speichern des Benutzers"), alert.Error)
		return err
	}

	log.Info().Str("username", username).Ints("channels", ids).Bool("active", isActive).Msg("user updated")

	c.alerts.Notify("Benutzer aktualisiert", alert.Success)
	c.done(ctx)
	return nil
}

// Delete removes username after the operator confirms.
func (c *Controller) Delete(ctx context.Context, username string) error {
	if !c.confirm.Confirm(fmt.Sprintf("Benutzer %q wirklich löschen?", username)) {
		return ErrCancelled
	}

	if err := c.api.DeleteUser(ctx, username); err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to delete user")
		c.alerts.Notify(client.Message(err, "Fehler beim Löschen", "Fehler beim Löschen des Benutzers"), alert.Error)
		return err
	}

	log.Info().Str("username", username).Msg("user deleted")

	c.alerts.Notify("Benutzer gelöscht", alert.Success)
	if target, ok := c.edits.EditTarget(); ok && target == username {
		c.edits.ClearEditTarget()
	}
	c.reload(ctx)
	return nil
}

func (c *Controller) done(ctx context.Context) {
	c.edits.ClearEditTarget()
	c.reload(ctx)
}

// Table renders users; an empty list yields the placeholder row.
func Table(users []models.User) table.Table {
	t := table.Table{
		Title:   "Benutzer",
		Columns: []string{"ID", "BENUTZERNAME", "FUNK-KEY", "KANÄLE", "STATUS", "ERSTELLT"},
		Empty:   "Keine Benutzer vorhanden",
	}
	for _, u := range users {
		t.Rows = append(t.Rows, []string{
			fmt.Sprintf("%d", u.ID),
			u.Username,
			u.FunkKey,
			u.AllowedChannels.String(),
			activeLabel(bool(u.IsActive)),
			format.Date(u.CreatedAt),
		})
	}
	return t
}

// editTarget is the fallback tracker when none is injected.
type editTarget struct {
	username string
}

func (e *editTarget) SetEditTarget(username string) { e.username = username }
func (e *editTarget) ClearEditTarget()              { e.username = "" }
func (e *editTarget) EditTarget() (string, bool)    { return e.username, e.username != "" }
