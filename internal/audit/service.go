package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"warehouse-backend/internal/models"
	"warehouse-backend/internal/store"
)

const (
	EntityIncoming = "incoming"
	EntityOutgoing = "outgoing"
	EntityTransfer = "transfer"
)

type LogOptions struct {
	WarehouseID *uint
	UserID      uint
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog stores one audit row. Call it with the unit-of-work store so the
// row commits or rolls back together with the change it describes.
func WriteLog(ctx context.Context, s store.AuditLogs, opts LogOptions) error {
	// jsonb columns need the literal null rather than an empty string
	beforeStr, err := marshalOrNull(opts.Before)
	if err != nil {
		return fmt.Errorf("audit before data: %w", err)
	}
	afterStr, err := marshalOrNull(opts.After)
	if err != nil {
		return fmt.Errorf("audit after data: %w", err)
	}

	log := models.AuditLog{
		WarehouseID: opts.WarehouseID,
		UserID:      opts.UserID,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := s.InsertAuditLog(ctx, &log); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

func marshalOrNull(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
