package liteserver

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound means the server no longer stores the requested block
	// (pruned) or never had it. During a boundary search this is an
	// expected answer, not a failure.
	ErrNotFound = errors.New("block not found")

	// ErrTimeout covers transport-level failures: timeouts, dropped
	// connections, the server not answering in time.
	ErrTimeout = errors.New("liteserver timeout")

	// ErrProtocol covers malformed or unexpected responses. Retried the
	// same way as ErrTimeout but logged louder.
	ErrProtocol = errors.New("malformed liteserver response")
)

// Liteservers report "block is not in db" with this code when asked
// for history they have already archived away.
const codeBlockNotInDB = 651

// ServerError is an error object returned by the remote liteserver.
type ServerError struct {
	Code    int32
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("liteserver error %d: %s", e.Code, e.Message)
}

func (e *ServerError) Unwrap() error {
	if e.Code == codeBlockNotInDB {
		return ErrNotFound
	}
	return ErrProtocol
}

// IsPruned reports whether err is the expected "history is gone"
// answer that narrows a boundary search.
func IsPruned(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransient reports whether err is worth retrying: network trouble,
// a malformed response, or a per-call deadline.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrProtocol) ||
		errors.Is(err, context.DeadlineExceeded)
}
