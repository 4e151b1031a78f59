package service

import (
	"github.com/ayo6706/multicurrency-wallet/internal/models"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func accountView(a repository.Account) *models.Account {
	return &models.Account{
		ID:               repository.FromPgUUID(a.ID),
		Username:         a.Username,
		Email:            a.Email,
		Phone:            deref(a.Phone),
		Role:             a.Role,
		VerificationTier: int(a.VerificationTier),
		Active:           a.Active,
		CreatedAt:        a.CreatedAt,
	}
}

func transferView(t repository.Transfer) *models.Transfer {
	return &models.Transfer{
		ID:                 repository.FromPgUUID(t.ID),
		SenderID:           repository.FromPgUUID(t.SenderID),
		RecipientID:        repository.OptionalUUID(t.RecipientID),
		RecipientEmail:     deref(t.RecipientEmail),
		RecipientPhone:     deref(t.RecipientPhone),
		DestinationAddress: deref(t.DestinationAddress),
		Kind:               t.Kind,
		SourceCurrency:     t.SourceCurrency,
		TargetCurrency:     t.TargetCurrency,
		AmountSource:       repository.Decimal(t.AmountSource),
		Fee:                repository.Decimal(t.Fee),
		FeePercentage:      repository.Decimal(t.FeePercentage),
		ExchangeRate:       repository.Decimal(t.ExchangeRate),
		AmountReceived:     repository.Decimal(t.AmountReceived),
		TotalDebit:         repository.Decimal(t.TotalDebit),
		Status:             t.Status,
		FailureReason:      deref(t.FailureReason),
		ProviderRef:        deref(t.ProviderRef),
		ReferenceID:        t.ReferenceID,
		Resolution:         deref(t.Resolution),
		ResolvedAt:         repository.OptionalTime(t.ResolvedAt),
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func instrumentView(i repository.IssuedInstrument) *models.Instrument {
	return &models.Instrument{
		ID:             repository.FromPgUUID(i.ID),
		TransferID:     repository.FromPgUUID(i.TransferID),
		Kind:           i.Kind,
		ProviderCardID: deref(i.ProviderCardID),
		SpendingLimit:  repository.Decimal(i.SpendingLimit),
		AmountConsumed: repository.Decimal(i.AmountConsumed),
		Currency:       i.Currency,
		Status:         i.Status,
		LockState:      deref(i.LockState),
		ExpiresAt:      repository.OptionalTime(i.ExpiresAt),
		UnlockedAt:     repository.OptionalTime(i.UnlockedAt),
	}
}
