package audit

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

type AuditLogResponse struct {
	ID          uint               `json:"id"`
	CreatedAt   string             `json:"created_at"`
	WarehouseID *uint              `json:"warehouse_id"`
	UserID      uint               `json:"user_id"`
	EntityType  string             `json:"entity_type"`
	EntityID    uint               `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
	BeforeData  any                `json:"before_data"`
	AfterData   any                `json:"after_data"`
}

func NewAuditLogResponse(l models.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:          l.ID,
		CreatedAt:   l.CreatedAt.Format("2006-01-02 15:04:05"),
		WarehouseID: l.WarehouseID,
		UserID:      l.UserID,
		EntityType:  l.EntityType,
		EntityID:    l.EntityID,
		Action:      l.Action,
		Description: l.Description,
		BeforeData:  rawJSON(l.BeforeData),
		AfterData:   rawJSON(l.AfterData),
	}
}

func rawJSON(s string) any {
	if s == "" || s == "null" {
		return nil
	}
	return json.RawMessage(s)
}

// GET /api/audit-logs?entity_type=incoming&entity_id=1&user_id=3&warehouse_id=1&since=2024-03-01
func ListAuditLogsHandler(s store.AuditLogs) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f := store.AuditFilter{EntityType: c.Query("entity_type")}

		for key, dst := range map[string]**uint{
			"entity_id":    &f.EntityID,
			"user_id":      &f.UserID,
			"warehouse_id": &f.WarehouseID,
		} {
			v := c.Query(key)
			if v == "" {
				continue
			}
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil || id == 0 {
				return fiber.NewError(fiber.StatusBadRequest, key+" must be a positive integer")
			}
			u := uint(id)
			*dst = &u
		}

		if v := c.Query("since"); v != "" {
			since, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "since must be a date in YYYY-MM-DD form")
			}
			f.Since = &since
		}

		logs, err := s.ListAuditLogs(c.UserContext(), f)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list audit logs")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, NewAuditLogResponse(l))
		}
		return c.JSON(fiber.Map{"result": resp})
	}
}
