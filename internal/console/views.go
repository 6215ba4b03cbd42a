package console

import (
	"fmt"
	"strconv"

	"github.com/wolfeidau/funkctl/internal/client"
	"github.com/wolfeidau/funkctl/internal/format"
	"github.com/wolfeidau/funkctl/internal/models"
	"github.com/wolfeidau/funkctl/internal/poller"
	"github.com/wolfeidau/funkctl/internal/table"
)

// Titles of the views in navigation order.
var titles = map[poller.View]string{
	poller.Dashboard: "Dashboard",
	poller.Users:     "Benutzer",
	poller.Channels:  "Kanäle",
	poller.Logs:      "Logs",
	poller.Stats:     "Statistiken",
	poller.Updates:   "Updates",
}

// Load failure messages per view.
var loadErrors = map[poller.View]string{
	poller.Dashboard: "Fehler beim Laden des Dashboards",
	poller.Users:     "Fehler beim Laden der Benutzer",
	poller.Channels:  "Fehler beim Laden der Kanäle",
	poller.Logs:      "Fehler beim Laden der Logs",
	poller.Stats:     "Fehler beim Laden der Statistiken",
	poller.Updates:   "Fehler beim Laden der Versionsinformationen",
}

// Title returns the display name of v.
func Title(v poller.View) string {
	if t, ok := titles[v]; ok {
		return t
	}
	return string(v)
}

// DashboardData is everything the dashboard view shows.
type DashboardData struct {
	ActiveUsers     *models.ActiveUserList
	TotalUsers      int
	ConnectionCount int
}

// DashboardTable renders the counters and the active users table.
func DashboardTable(d DashboardData) table.Table {
	active := 0
	var users []models.ActiveUser
	if d.ActiveUsers != nil {
		active = d.ActiveUsers.Count
		users = d.ActiveUsers.ActiveUsers
	}

	t := table.Table{
		Title: fmt.Sprintf("Aktive Benutzer: %d   Benutzer gesamt: %d   Verbindungen: %d",
			active, d.TotalUsers, d.ConnectionCount),
		Columns: []string{"BENUTZERNAME", "KANAL", "ZULETZT GESEHEN", "BERECHTIGUNGEN"},
		Empty:   "Keine aktiven Benutzer",
	}
	for _, u := range users {
		t.Rows = append(t.Rows, []string{
			u.Username,
			"Kanal " + optionalInt(u.CurrentChannel),
			format.Date(u.LastSeen),
			fmt.Sprintf("%d Kanäle", len(u.AllowedChannels)),
		})
	}
	return t
}

// LogsTable renders at most client.DefaultLogLimit connection log entries.
func LogsTable(entries []models.ConnectionLogEntry) table.Table {
	t := table.Table{
		Title:   "Verbindungslogs",
		Columns: []string{"ZEIT", "BENUTZER", "KANAL", "AKTION", "IP-ADRESSE"},
		Empty:   "Keine Logs vorhanden",
	}
	if len(entries) > client.DefaultLogLimit {
		entries = entries[:client.DefaultLogLimit]
	}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{
			format.Date(e.Timestamp),
			format.OrNA(e.Username),
			"Kanal " + optionalInt(e.ChannelID),
			e.Action,
			format.OrNA(e.IPAddress),
		})
	}
	return t
}

var windowLabels = map[string]string{
	models.Window24h: "24 Stunden",
	models.Window7d:  "7 Tage",
	models.Window30d: "30 Tage",
}

// TrafficTable renders the backend's pre-formatted traffic totals.
func TrafficTable(stats *models.TrafficStats) table.Table {
	t := table.Table{
		Title:   "Traffic",
		Columns: []string{"ZEITRAUM", "EINGEHEND", "AUSGEHEND"},
		Empty:   "Keine Statistiken verfügbar",
	}
	if stats == nil || stats.Traffic == nil {
		return t
	}
	for _, w := range models.TrafficWindows {
		tw, ok := stats.Traffic[w]
		in, out := format.NotAvailable, format.NotAvailable
		if ok {
			in, out = orNA(tw.BytesInFormatted), orNA(tw.BytesOutFormatted)
		}
		t.Rows = append(t.Rows, []string{windowLabels[w], in, out})
	}
	return t
}

func optionalInt(n *int) string {
	if n == nil || *n == 0 {
		return format.NotAvailable
	}
	return strconv.Itoa(*n)
}

func orNA(s string) string {
	return format.OrNA(&s)
}
