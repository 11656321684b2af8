package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/gymslot-api/internal/models"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// recordAudit stores an admin action. Failures are logged and never surface to the caller.
func recordAudit(ctx context.Context, audit auditLogger, logger *zap.Logger, actorID, action, resource, resourceID string, values interface{}) {
	if audit == nil {
		return
	}
	entry := &models.AuditLog{Action: action, Resource: resource}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if values != nil {
		if payload, err := json.Marshal(values); err == nil {
			entry.NewValues = payload
		}
	}
	if err := audit.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
