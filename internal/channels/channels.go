// Package channels merges the fixed channel topology with the sparse usage
// counters reported by the backend.
package channels

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wolfeidau/funkctl/internal/models"
	"github.com/wolfeidau/funkctl/internal/table"
)

// Kind separates the public and private channel ranges.
type Kind string

const (
	Public  Kind = "public"
	Private Kind = "private"
)

// Channel id ranges, inclusive.
const (
	PublicFirst  = 41
	PublicLast   = 43
	PrivateFirst = 51
	PrivateLast  = 69
)

// Channel is one row of the merged channel view.
type Channel struct {
	ID               int
	Name             string
	Kind             Kind
	UniqueUsers      int
	TotalConnections int
}

// Badge marks the channel kind.
func (c Channel) Badge() string {
	return Badge(c.Kind)
}

// Badge returns the marker shown next to channels of kind k.
func Badge(k Kind) string {
	if k == Public {
		return "📢"
	}
	return "🔒"
}

// Title returns the group heading for kind k.
func Title(k Kind) string {
	if k == Public {
		return "Öffentliche Kanäle"
	}
	return "Private Kanäle"
}

// Topology returns every channel id in display order: public then private.
func Topology() []int {
	ids := make([]int, 0, PublicLast-PublicFirst+1+PrivateLast-PrivateFirst+1)
	for id := PublicFirst; id <= PublicLast; id++ {
		ids = append(ids, id)
	}
	for id := PrivateFirst; id <= PrivateLast; id++ {
		ids = append(ids, id)
	}
	return ids
}

// KindOf reports the kind of id. ok is false for ids outside the topology.
func KindOf(id int) (kind Kind, ok bool) {
	switch {
	case id >= PublicFirst && id <= PublicLast:
		return Public, true
	case id >= PrivateFirst && id <= PrivateLast:
		return Private, true
	}
	return "", false
}

// Exists reports whether id belongs to the topology.
func Exists(id int) bool {
	_, ok := KindOf(id)
	return ok
}

// DefaultName is the name shown when the backend supplies none.
func DefaultName(id int) string {
	if k, _ := KindOf(id); k == Public {
		return fmt.Sprintf("Kanal %d (Allgemein)", id)
	}
	return fmt.Sprintf("Kanal %d", id)
}

// Merge overlays usage on the full topology. Records for unknown ids are
// ignored and channels without a record get zero counters.
func Merge(usage []models.ChannelUsage) []Channel {
	byID := make(map[int]models.ChannelUsage, len(usage))
	for _, u := range usage {
		byID[u.ID] = u
	}

	ids := Topology()
	out := make([]Channel, 0, len(ids))
	for _, id := range ids {
		kind, _ := KindOf(id)
		ch := Channel{ID: id, Name: DefaultName(id), Kind: kind}
		if u, ok := byID[id]; ok {
			if u.Name != "" {
				ch.Name = u.Name
			}
			ch.UniqueUsers = u.UniqueUsers
			ch.TotalConnections = u.TotalConnections
		}
		out = append(out, ch)
	}
	return out
}

// Table renders merged channels. state supplies the test tone button label
// and may be nil.
func Table(chs []Channel, state func(id int) ButtonState) table.Table {
	t := table.Table{
		Title:   "Kanäle",
		Columns: []string{"KANAL", "NAME", "EINDEUTIGE BENUTZER", "VERBINDUNGEN", "TEST"},
		Empty:   "Keine Kanäle",
	}
	for _, ch := range chs {
		btn := Idle
		if state != nil {
			btn = state(ch.ID)
		}
		t.Rows = append(t.Rows, []string{
			fmt.Sprintf("Kanal %d", ch.ID),
			ch.Name + " " + ch.Badge(),
			strconv.Itoa(ch.UniqueUsers),
			strconv.Itoa(ch.TotalConnections),
			btn.String(),
		})
	}
	return t
}

// Checkbox is one channel toggle of the user form.
type Checkbox struct {
	ID      int
	Checked bool
}

// Group is a titled block of checkboxes.
type Group struct {
	Kind  Kind
	Boxes []Checkbox
}

// Checkboxes builds the grouped channel selector with selected pre-checked.
func Checkboxes(selected []int) []Group {
	set := make(map[int]bool, len(selected))
	for _, id := range selected {
		set[id] = true
	}

	groups := []Group{{Kind: Public}, {Kind: Private}}
	for _, id := range Topology() {
		i := 0
		if k, _ := KindOf(id); k == Private {
			i = 1
		}
		groups[i].Boxes = append(groups[i].Boxes, Checkbox{ID: id, Checked: set[id]})
	}
	return groups
}

// FormatCheckboxes renders groups one per line, e.g.
// "📢 Öffentliche Kanäle: [x] 41 [ ] 42 [ ] 43".
func FormatCheckboxes(groups []Group) string {
	var sb strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&sb, "%s %s:", Badge(g.Kind), Title(g.Kind))
		for _, b := range g.Boxes {
			mark := " "
			if b.Checked {
				mark = "x"
			}
			fmt.Fprintf(&sb, " [%s] %d", mark, b.ID)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Normalize sorts ids into topology order and drops duplicates. It returns
// an error for the first id outside the topology.
func Normalize(ids []int) ([]int, error) {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !Exists(id) {
			return nil, fmt.Errorf("channel %d does not exist", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}
