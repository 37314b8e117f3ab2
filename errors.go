package couch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// ErrInvalidArgument is wrapped by every error caused by a missing or
	// malformed parameter. Such errors are returned before any request is sent.
	ErrInvalidArgument = errors.New("couch: invalid argument")

	// ErrShortUUIDs is returned when the server hands out fewer new
	// identifiers than were needed to satisfy a request.
	ErrShortUUIDs = errors.New("couch: server returned too few uuids")
)

// StatusError is returned when CouchDB answers with a status code outside
// the success set of an operation. Type and Reason are filled from the
// CouchDB error description in the body, if there is one.
type StatusError struct {
	StatusCode int
	Body       []byte
	Type       string
	Reason     string
}

func newStatusError(resp *response) *StatusError {
	e := &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
	var desc struct {
		Type   string `json:"error"`
		Reason string `json:"reason"`
	}
	if json.Unmarshal(resp.Body, &desc) == nil {
		e.Type, e.Reason = desc.Type, desc.Reason
	}
	return e
}

func (e *StatusError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("couchdb: %d %s (%s)", e.StatusCode, e.Type, e.Reason)
	}
	return fmt.Sprintf("couchdb: %d: %s", e.StatusCode, string(e.Body))
}

// ErrorType returns the CouchDB shortform error type (e.g. conflict or
// not_found) if err carries one, and an empty string otherwise.
func ErrorType(err error) string {
	var sErr *StatusError
	if errors.As(err, &sErr) {
		return sErr.Type
	}
	return ""
}

// IsNotFound reports whether err is a 404 answer from CouchDB.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsConflict reports whether err is a 409 answer from CouchDB, which is what
// a stale revision provokes.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func hasStatus(err error, code int) bool {
	var sErr *StatusError
	return errors.As(err, &sErr) && sErr.StatusCode == code
}

// invalid validates value against rules and tags a failure with the
// parameter name and ErrInvalidArgument.
func invalid(name string, value interface{}, rules ...validation.Rule) error {
	if err := validation.Validate(value, rules...); err != nil {
		return fmt.Errorf("%w: %s %v", ErrInvalidArgument, name, err)
	}
	return nil
}

func requireName(name, value string) error {
	return invalid(name, value, validation.Required)
}
