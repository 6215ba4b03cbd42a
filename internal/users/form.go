package users

import (
	"fmt"
	"strings"

	"github.com/wolfeidau/funkctl/internal/channels"
	"github.com/wolfeidau/funkctl/internal/models"
)

// Form titles.
const (
	TitleCreate = "Neuer Benutzer"
	TitleEdit   = "Benutzer bearbeiten"
)

// Form is the create/edit user form.
type Form struct {
	Title            string
	Username         string
	UsernameDisabled bool
	FunkKey          string
	IsActive         bool
	Channels         []channels.Group
}

// NewForm returns a blank create form: every channel unchecked, active.
func NewForm() *Form {
	return &Form{
		Title:    TitleCreate,
		IsActive: true,
		Channels: channels.Checkboxes(nil),
	}
}

// EditForm returns the form for u with the username locked and u's channels
// pre-checked.
func EditForm(u *models.User) *Form {
	return &Form{
		Title:            TitleEdit,
		Username:         u.Username,
		UsernameDisabled: true,
		FunkKey:          u.FunkKey,
		IsActive:         bool(u.IsActive),
		Channels:         channels.Checkboxes(u.AllowedChannels),
	}
}

// Editing reports whether the form edits an existing user.
func (f *Form) Editing() bool {
	return f.UsernameDisabled
}

// Selected returns the checked channel ids in topology order.
func (f *Form) Selected() []int {
	ids := []int{}
	for _, g := range f.Channels {
		for _, b := range g.Boxes {
			if b.Checked {
				ids = append(ids, b.ID)
			}
		}
	}
	return ids
}

// Toggle flips the checkbox of channel id.
func (f *Form) Toggle(id int) error {
	for gi := range f.Channels {
		for bi := range f.Channels[gi].Boxes {
			if f.Channels[gi].Boxes[bi].ID == id {
				f.Channels[gi].Boxes[bi].Checked = !f.Channels[gi].Boxes[bi].Checked
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %d", channels.ErrUnknownChannel, id)
}

// SetUsername changes the username of a create form.
func (f *Form) SetUsername(username string) error {
	if f.UsernameDisabled {
		return fmt.Errorf("username cannot be changed")
	}
	f.Username = username
	return nil
}

// String renders the form for the terminal.
func (f *Form) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n\n", f.Title)

	username := f.Username
	if f.UsernameDisabled {
		username += " (gesperrt)"
	}
	fmt.Fprintf(&sb, "Benutzername: %s\n", username)

	key := f.FunkKey
	if key == "" {
		key = "(wird generiert)"
	}
	fmt.Fprintf(&sb, "Funk-Key:     %s\n", key)
	fmt.Fprintf(&sb, "Status:       %s\n\n", activeLabel(f.IsActive))
	sb.WriteString(channels.FormatCheckboxes(f.Channels))

	return sb.String()
}

func activeLabel(active bool) string {
	if active {
		return "Aktiv"
	}
	return "Inaktiv"
}
