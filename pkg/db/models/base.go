package models

import "github.com/google/uuid"

// ensureID assigns a random id when the caller did not pick one, so inserts
// never depend on a database-side uuid default.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
