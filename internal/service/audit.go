package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/google/uuid"
)

const (
	entityTransfer   = "transfer"
	entityAccount    = "account"
	entityInstrument = "instrument"
	entityDeposit    = "deposit"
)

// AuditService writes immutable audit trail entries.
type AuditService struct{}

func NewAuditService() *AuditService {
	return &AuditService{}
}

// Write stores a single immutable audit record inside the caller's transaction.
func (s *AuditService) Write(ctx context.Context, qtx *repository.Queries, entityType string, entityID uuid.UUID, actorID *uuid.UUID, action, prevState, nextState string, metadata []byte) error {
	if _, err := qtx.InsertAuditLog(ctx, repository.InsertAuditLogParams{
		EntityType: entityType,
		EntityID:   repository.ToPgUUID(entityID),
		ActorID:    repository.NullableUUID(actorID),
		Action:     action,
		PrevState:  repository.TextParam(prevState),
		NextState:  repository.TextParam(nextState),
		Metadata:   metadata,
	}); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func auditMetadata(fields map[string]any) []byte {
	if len(fields) == 0 {
		return nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return b
}
