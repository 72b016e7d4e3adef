package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"designhouse-backend/internal/models"
	"designhouse-backend/internal/store"

	"github.com/google/uuid"
)

type LogOptions struct {
	UserID      uuid.UUID
	Role        models.UserRole
	EntityType  string
	EntityID    uuid.UUID
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog appends a global audit record through tx, so it commits or rolls
// back together with the change it describes.
func WriteLog(ctx context.Context, tx store.AuditLogs, opts LogOptions) error {
	// jsonb columns take "null", not an empty string.
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	log := models.AuditLog{
		ID:          uuid.New(),
		UserID:      opts.UserID,
		Role:        opts.Role,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := tx.AppendAuditLog(ctx, &log); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
