package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SavedFilter - a named, serialized set of active filters of a category.
// The payload format belongs to the page controller, not to the engine.
type SavedFilter struct {
	ID        uuid.UUID
	Category  string
	Name      string
	Values    json.RawMessage
	CreatedAt time.Time
}
