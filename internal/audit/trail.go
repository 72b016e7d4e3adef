package audit

import (
	"fmt"
	"sort"
	"time"

	"designhouse-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	MaxTrailFields     = 16
	MaxTrailValueChars = 120
)

// Append returns trail with one entry added. Changes are recorded in key order,
// capped at MaxTrailFields fields of at most MaxTrailValueChars characters.
func Append(trail []models.TrailEntry, actor uuid.UUID, action string, changes map[string]any, at time.Time) []models.TrailEntry {
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > MaxTrailFields {
		keys = keys[:MaxTrailFields]
	}

	entry := models.TrailEntry{
		At:      at.UTC(),
		ActorID: actor,
		Action:  action,
		Changes: make([]models.FieldChange, 0, len(keys)),
	}
	for _, k := range keys {
		entry.Changes = append(entry.Changes, models.FieldChange{Field: k, Value: summarize(changes[k])})
	}
	return append(trail, entry)
}

func summarize(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		s = "null"
	case string:
		s = val
	case decimal.Decimal:
		s = val.String()
	case decimal.NullDecimal:
		if val.Valid {
			s = val.Decimal.String()
		} else {
			s = "null"
		}
	case *uuid.UUID:
		if val == nil {
			s = "null"
		} else {
			s = val.String()
		}
	case time.Time:
		s = val.UTC().Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			s = "null"
		} else {
			s = val.UTC().Format(time.RFC3339)
		}
	case fmt.Stringer:
		s = val.String()
	default:
		s = fmt.Sprint(val)
	}
	r := []rune(s)
	if len(r) > MaxTrailValueChars {
		return string(r[:MaxTrailValueChars-3]) + "..."
	}
	return s
}
