package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// Sentinel errors
var (
	// ErrNoSession is returned, without touching the network, when an
	// authorized call is attempted while no session token is held.
	ErrNoSession = errors.New("no session token")

	// ErrUnauthorized matches any HTTPError carrying a 401 status.
	ErrUnauthorized = errors.New("unauthorized")
)

// HTTPError is a non-2xx backend response.
type HTTPError struct {
	StatusCode int
	// Detail is the backend's structured error message, or a generic
	// message when the body could not be parsed.
	Detail string
}

func (e *HTTPError) Error() string {
	return e.Detail
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *HTTPError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// TransportError wraps network and decoding failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAuthError reports whether err means the session is missing or expired.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNoSession) || errors.Is(err, ErrUnauthorized)
}

// IsTransport reports whether err is a network or decoding failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// DetailOr returns the backend detail carried by err, or fallback when err is
// not an HTTPError.
func DetailOr(err error, fallback string) string {
	var he *HTTPError
	if errors.As(err, &he) && he.Detail != "" {
		return he.Detail
	}
	return fallback
}

type errorPayload struct {
	Detail json.RawMessage `json:"detail"`
}

type validationItem struct {
	Msg string `json:"msg"`
	Loc []any  `json:"loc"`
}

// newHTTPError parses {"detail": ...} from body. The detail is either a
// string or, for request validation failures, a list of {loc, msg} items.
func newHTTPError(status int, body []byte) *HTTPError {
	he := &HTTPError{
		StatusCode: status,
		Detail:     fmt.Sprintf("request failed with status %d", status),
	}

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return he
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		if detail != "" {
			he.Detail = detail
		}
		return he
	}

	var items []validationItem
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if len(item.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", item.Loc[len(item.Loc)-1], item.Msg))
				continue
			}
			msgs = append(msgs, item.Msg)
		}
		he.Detail = strings.Join(msgs, "; ")
	}

	return he
}

// Message picks the operator message for a failed call: the backend detail
// when the request was rejected, rejected when no detail is available and
// transport for network and decoding failures.
func Message(err error, rejected, transport string) string {
	var he *HTTPError
	if errors.As(err, &he) {
		return DetailOr(err, rejected)
	}
	return transport
}
