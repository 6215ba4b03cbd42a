package users

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/gookit/validate"
	"github.com/wolfeidau/funkctl/internal/channels"
)

// FunkKeyLength is the length of generated funk keys.
const FunkKeyLength = 32

// ValidationError is a local input rejection. No request is issued.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Length and format rules belong to the backend; its 422 detail is shown
// verbatim.
type createInput struct {
	Username string `json:"username" validate:"required" label:"Benutzername"`
	FunkKey  string `json:"funk_key" validate:"required" label:"Funk-Key"`
}

var messages = map[string]string{
	"required": "{field} ist erforderlich",
}

// validateCreate checks the create fields and returns the channels in
// topology order.
func validateCreate(username, funkKey string, ids []int) ([]int, error) {
	v := validate.Struct(&createInput{Username: username, FunkKey: funkKey})
	v.AddMessages(messages)
	if !v.Validate() {
		return nil, &ValidationError{Message: v.Errors.One()}
	}
	return validateChannels(ids)
}

func validateChannels(ids []int) ([]int, error) {
	normalized, err := channels.Normalize(ids)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	return normalized, nil
}

// GenerateFunkKey returns 32 random lowercase hex characters.
func GenerateFunkKey() string {
	b := make([]byte, FunkKeyLength/2)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
