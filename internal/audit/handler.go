package audit

import (
	"strconv"

	"designhouse-backend/internal/apperr"
	"designhouse-backend/internal/models"
	"designhouse-backend/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

// GET /api/audit-logs?entity_type=order&entity_id=...&user_id=...&limit=50
func ListAuditLogsHandler(st store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := store.AuditLogFilter{
			EntityType: c.Query("entity_type"),
			Limit:      defaultListLimit,
		}

		if s := c.Query("entity_id"); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				return apperr.Validation("list audit logs", "invalid entity_id")
			}
			filter.EntityID = id
		}
		if s := c.Query("user_id"); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				return apperr.Validation("list audit logs", "invalid user_id")
			}
			filter.UserID = id
		}
		if s := c.Query("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return apperr.Validation("list audit logs", "invalid limit")
			}
			filter.Limit = min(n, maxListLimit)
		}

		var logs []models.AuditLog
		err := st.InTx(c.UserContext(), func(tx store.Tx) error {
			var err error
			logs, err = tx.ListAuditLogs(c.UserContext(), filter)
			return err
		})
		if err != nil {
			return err
		}
		return c.JSON(logs)
	}
}
