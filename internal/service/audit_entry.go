package service

import (
	"context"
	"encoding/json"

	"orghub/internal/model"
	"orghub/internal/repository"
	"orghub/pkg/apperror"

	"github.com/google/uuid"
)

// logAudit writes an org-scoped audit entry. Called inside the same
// transaction as the mutation it records.
func logAudit(ctx context.Context, auditRepo repository.AuditRepository, orgID uuid.UUID, userID *uuid.UUID, action, entityID, entityName string, payload interface{}) error {
	var details string
	if payload != nil {
		b, _ := json.Marshal(payload)
		details = string(b)
	}

	entry := &model.AuditLog{
		OrgID:      orgID,
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    details,
	}
	if err := auditRepo.Log(ctx, entry); err != nil {
		return apperror.Internal("failed to write audit log", err)
	}
	return nil
}
