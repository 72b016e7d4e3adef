package models

import (
	"time"

	"github.com/google/uuid"
)

// TrailEntry is one append-only change record embedded in a mutable entity.
type TrailEntry struct {
	At      time.Time     `json:"at"`
	ActorID uuid.UUID     `json:"actor_id"`
	Action  string        `json:"action"`
	Changes []FieldChange `json:"changes"`
}

type FieldChange struct {
	Field string `json:"field"`
	Value string `json:"value"`
}
