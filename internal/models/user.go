package models

// User is a channel platform account managed by the console.
// Username and FunkKey are immutable through the edit path.
type User struct {
	ID              int64       `json:"id,omitempty"`
	Username        string      `json:"username"`
	FunkKey         string      `json:"funk_key"`
	AllowedChannels ChannelList `json:"allowed_channels"`
	IsActive        Flag        `json:"is_active"`
	CreatedAt       Timestamp   `json:"created_at"`
	LastSeen        Timestamp   `json:"last_seen"`
}

// UserList is the response of GET /api/admin/users.
type UserList struct {
	Count int    `json:"count"`
	Users []User `json:"users"`
}

// CreateUserRequest is the body of POST /api/admin/users.
type CreateUserRequest struct {
	Username        string `json:"username"`
	FunkKey         string `json:"funk_key"`
	AllowedChannels []int  `json:"allowed_channels"`
}

// UpdateUserRequest is the body of PUT /api/admin/users/{username}.
// It deliberately carries no username or funk key.
type UpdateUserRequest struct {
	AllowedChannels []int `json:"allowed_channels"`
	IsActive        bool  `json:"is_active"`
}

// ActiveUser is a user seen by the voice server within the activity window.
type ActiveUser struct {
	Username        string      `json:"username"`
	CurrentChannel  *int        `json:"current_channel"`
	LastSeen        Timestamp   `json:"last_seen"`
	AllowedChannels ChannelList `json:"allowed_channels"`
}

// ActiveUserList is the response of GET /api/stats/active-users.
type ActiveUserList struct {
	Count       int          `json:"count"`
	ActiveUsers []ActiveUser `json:"active_users"`
}
