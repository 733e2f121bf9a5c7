package mirror

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies coordinator errors for the transport layer
type Kind int

// Error kinds
const (
	KindUnhandled Kind = iota
	KindInvalidArgument
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	default:
		return "unhandled"
	}
}

// Error keys shared with clients
const (
	KeyIDExists    = "idexists"
	KeyIDNull      = "idnull"
	KeyNotFound    = "notfound"
	KeySortInvalid = "sortinvalid"
	KeyInternal    = "internal"
	KeyIndexSync   = "indexsync"
)

// ErrIndexSync marks a committed write whose search index update failed
var ErrIndexSync = errors.New("search index update failed after commit")

// Error is returned by every Coordinator operation
type Error struct {
	Kind       Kind
	Message    string
	EntityName string
	Key        string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.EntityName, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.EntityName, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// InvalidArgument builds a caller error
func InvalidArgument(entityName, message, key string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message, EntityName: entityName, Key: key}
}

// NotFound builds a missing record error
func NotFound(entityName string) *Error {
	return &Error{Kind: KindNotFound, Message: "Record not found", EntityName: entityName, Key: KeyNotFound}
}

// Unhandled wraps an unexpected failure
func Unhandled(entityName, key string, err error) *Error {
	return &Error{Kind: KindUnhandled, Message: "Internal error", EntityName: entityName, Key: key, Err: err}
}

// KindOf returns the kind of err, KindUnhandled for foreign errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnhandled
}

// IsInvalidArgument reports whether err is a caller error
func IsInvalidArgument(err error) bool {
	return err != nil && KindOf(err) == KindInvalidArgument
}

// IsNotFound reports whether err is a missing record error
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
