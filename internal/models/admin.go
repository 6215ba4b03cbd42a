package models

// VersionInfo describes the current distributable client binary.
type VersionInfo struct {
	Version     string    `json:"version"`
	ReleaseDate Timestamp `json:"release_date"`
	DownloadURL string    `json:"download_url,omitempty"`
	FileSize    int64     `json:"file_size"`
	Changelog   string    `json:"changelog"`
}

// UpdateInfo is the response of GET /api/admin/updates/info. A nil
// VersionInfo means nothing has been uploaded yet.
type UpdateInfo struct {
	VersionInfo *VersionInfo `json:"version_info"`
	ExeExists   bool         `json:"exe_exists"`
	ExeSize     int64        `json:"exe_size"`
}

// UploadResult is the confirmation returned by a successful upload.
type UploadResult struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	FileSize    int64        `json:"file_size"`
	VersionInfo *VersionInfo `json:"version_info"`
}

// Health is the response of the unauthenticated GET /health check.
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// Healthy reports whether the server declared itself healthy.
func (h *Health) Healthy() bool {
	return h != nil && h.Status == "healthy"
}

// LoginRequest is the body of POST /api/admin/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult carries the opaque admin session token.
type LoginResult struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// VerifyResult is the response of GET /api/admin/verify.
type VerifyResult struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username"`
}
