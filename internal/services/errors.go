package services

import (
  "errors"
  "fmt"
  "github.com/google/uuid"
)

// ErrRemoteUnavailable wraps any gateway failure. The caller must treat the
// operation as not applied: the in-memory mirror has already been rolled
// back by the time this error is returned.
var ErrRemoteUnavailable = errors.New("remote unlock store unavailable")

// ErrInvalidCredentials covers both unknown email and wrong password so the
// response does not leak which one it was.
var ErrInvalidCredentials = errors.New("invalid email or password")

var ErrEmailTaken = errors.New("email is already in use")

// PartialMergeError reports a reconciliation where some adds landed and some
// did not. Succeeded ids are kept; FailedIDs stay behind as guest residue so
// the client can retry. Not fatal.
type PartialMergeError struct {
  FailedIDs []uuid.UUID
}

func (e *PartialMergeError) Error() string {
  return fmt.Sprintf("guest progress merge incomplete: %d unlock(s) not persisted", len(e.FailedIDs))
}
