// Package format renders values for operator-facing output.
package format

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/wolfeidau/funkctl/internal/models"
)

// NotAvailable is shown for optional values the backend did not supply.
const NotAvailable = "N/A"

// dateLayout matches the de-DE locale the operators use: 01.03.2025, 14:05:09.
const dateLayout = "02.01.2006, 15:04:05"

// Bytes renders a byte count using binary units, e.g. "1.5 MiB".
func Bytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

// Progress renders "sent / total" for an upload.
func Progress(sent, total int64) string {
	return Bytes(sent) + " / " + Bytes(total)
}

// Date renders a backend timestamp in local time, or N/A when absent.
func Date(ts models.Timestamp) string {
	if ts.IsZero() {
		return NotAvailable
	}
	return ts.Local().Format(dateLayout)
}

// Time renders t like Date.
func Time(t time.Time) string {
	return Date(models.Timestamp{Time: t})
}

// OrNA dereferences an optional string.
func OrNA(s *string) string {
	if s == nil || *s == "" {
		return NotAvailable
	}
	return *s
}
