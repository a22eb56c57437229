package types

import (
  "github.com/google/uuid"
)

// Identity is the authenticated account attached to a session. A nil
// *Identity everywhere in the unlock code means "guest".
type Identity struct {
  UserID      uuid.UUID
  Email       string
}
