package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/google/uuid"
)

var transferTransitions = map[string]map[string]struct{}{
	domain.TransferStatusPending: {
		domain.TransferStatusCompleted: {},
		domain.TransferStatusFailed:    {},
	},
	domain.TransferStatusCompleted: {},
	domain.TransferStatusFailed:    {},
}

func normalizeState(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

func canTransition(current, next string) bool {
	nextStates, ok := transferTransitions[normalizeState(current)]
	if !ok {
		return false
	}
	_, ok = nextStates[normalizeState(next)]
	return ok
}

type transferTransition struct {
	next          string
	action        string
	failureReason string
	providerRef   string
	actorID       *uuid.UUID
	metadata      []byte
}

func transitionTransferState(ctx context.Context, qtx *repository.Queries, audit *AuditService, transferID uuid.UUID, t transferTransition) error {
	current, err := qtx.GetTransferStatusForUpdate(ctx, repository.ToPgUUID(transferID))
	if err != nil {
		return fmt.Errorf("get current transfer state: %w", err)
	}

	if normalizeState(current) == normalizeState(t.next) {
		return nil
	}
	if !canTransition(current, t.next) {
		return fmt.Errorf("invalid transfer state transition: %s -> %s", current, t.next)
	}

	rows, err := qtx.UpdateTransferStatus(ctx, repository.UpdateTransferStatusParams{
		Status:        t.next,
		FailureReason: repository.TextParam(t.failureReason),
		ProviderRef:   repository.TextParam(t.providerRef),
		ID:            repository.ToPgUUID(transferID),
	})
	if err != nil {
		return fmt.Errorf("update transfer state: %w", err)
	}
	if err := requireExactlyOne(rows, "update transfer state"); err != nil {
		return err
	}

	return audit.Write(ctx, qtx, entityTransfer, transferID, t.actorID, t.action, current, t.next, t.metadata)
}
