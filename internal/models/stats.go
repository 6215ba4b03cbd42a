package models

// ConnectionLogEntry is a read-only audit record owned by the backend.
type ConnectionLogEntry struct {
	Timestamp   Timestamp `json:"timestamp"`
	Username    *string   `json:"username"`
	ChannelID   *int      `json:"channel_id"`
	ChannelName *string   `json:"channel_name,omitempty"`
	Action      string    `json:"action"`
	IPAddress   *string   `json:"ip_address"`
}

// ConnectionLogList is the response of GET /api/logs/connections.
type ConnectionLogList struct {
	Count int                  `json:"count"`
	Logs  []ConnectionLogEntry `json:"logs"`
}

// ChannelUsage is a sparse per-channel usage record.
type ChannelUsage struct {
	ID               int    `json:"id"`
	Name             string `json:"name,omitempty"`
	UniqueUsers      int    `json:"unique_users"`
	TotalConnections int    `json:"total_connections"`
}

// ChannelUsageList is the response of GET /api/stats/channel-usage.
type ChannelUsageList struct {
	Count        int            `json:"count"`
	ChannelUsage []ChannelUsage `json:"channel_usage"`
}

// Traffic windows reported by the backend.
const (
	Window24h = "24h"
	Window7d  = "7d"
	Window30d = "30d"
)

// TrafficWindows lists the windows in display order.
var TrafficWindows = []string{Window24h, Window7d, Window30d}

// TrafficWindow holds pre-formatted byte totals for one window.
type TrafficWindow struct {
	BytesIn           int64  `json:"bytes_in"`
	BytesOut          int64  `json:"bytes_out"`
	BytesInFormatted  string `json:"bytes_in_formatted"`
	BytesOutFormatted string `json:"bytes_out_formatted"`
	TotalFormatted    string `json:"total_formatted,omitempty"`
}

// TrafficStats is the response of GET /api/stats/traffic.
type TrafficStats struct {
	Traffic map[string]TrafficWindow `json:"traffic"`
}

// TestToneResult is the response of POST /api/channels/{id}/test-tone.
type TestToneResult struct {
	ChannelName string `json:"channel_name"`
}
