package domain

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyLog stores the first response of a money-moving request.
type IdempotencyLog struct {
	Key          string    `json:"key"` // Format: "scope:actor:client_key"
	ResourceID   uuid.UUID `json:"resource_id"`
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// BuildIdempotencyKey scopes a client-supplied key to an operation and actor.
func BuildIdempotencyKey(scope, actorID, clientKey string) string {
	return scope + ":" + actorID + ":" + clientKey
}
