package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/ayo6706/multicurrency-wallet/internal/models"
	"github.com/ayo6706/multicurrency-wallet/internal/repository"
	"github.com/ayo6706/multicurrency-wallet/internal/validation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrAccountExists = errors.New("account already exists")

type AccountService struct {
	store                QueryStore
	ledger               *Ledger
	audit                *AuditService
	allowOpeningBalances bool
}

func NewAccountService(store QueryStore, allowOpeningBalances bool) *AccountService {
	return &AccountService{
		store:                store,
		ledger:               NewLedger(),
		audit:                NewAuditService(),
		allowOpeningBalances: allowOpeningBalances,
	}
}

// SignupRequest opens a tier-0 account. OpeningBalances is only honoured in
// environments that allow funding accounts at signup.
type SignupRequest struct {
	Username        string                     `json:"username" validate:"required,min=3,max=64,alphanum"`
	Email           string                     `json:"email" validate:"required,email"`
	Phone           string                     `json:"phone" validate:"omitempty,e164"`
	OpeningBalances map[string]decimal.Decimal `json:"opening_balances"`
}

// Signup creates the account and records any opening balance as a credit
// mutation so balances always equal the net of the mutation log.
func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (*models.Account, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if len(req.OpeningBalances) > 0 && !s.allowOpeningBalances {
		return nil, domain.NewValidationError("opening_balances", "are not accepted in this environment")
	}

	currencies := make([]string, 0, len(req.OpeningBalances))
	opening := make(map[string]decimal.Decimal, len(req.OpeningBalances))
	for code, amount := range req.OpeningBalances {
		c := domain.NormalizeCurrency(code)
		if !domain.IsSupportedCurrency(c) {
			return nil, domain.NewValidationError("opening_balances", "unsupported currency %q", code)
		}
		if amount.IsNegative() {
			return nil, domain.NewValidationError("opening_balances", "%s amount must not be negative", c)
		}
		rounded, err := domain.RoundToMinor(amount, c)
		if err != nil {
			return nil, err
		}
		if !rounded.Equal(amount) {
			return nil, domain.NewValidationError("opening_balances", "%s amount has too many decimal places", c)
		}
		if amount.IsZero() {
			continue
		}
		currencies = append(currencies, c)
		opening[c] = amount
	}
	sort.Strings(currencies)

	accountID := uuid.New()
	var created repository.Account
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		var err error
		created, err = qtx.CreateAccount(ctx, repository.CreateAccountParams{
			ID:               repository.ToPgUUID(accountID),
			Username:         req.Username,
			Email:            req.Email,
			Phone:            repository.TextParam(req.Phone),
			Role:             domain.RoleUser,
			VerificationTier: domain.Tier0,
		})
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrAccountExists
			}
			return fmt.Errorf("create account: %w", err)
		}

		for _, c := range currencies {
			if err := s.ledger.Credit(ctx, qtx, accountID, c, opening[c], MutationInput{
				Description:    "opening balance",
				CorrelationID:  accountID.String(),
				IdempotencyKey: "opening:" + accountID.String() + ":" + c,
			}); err != nil {
				return err
			}
		}
		return s.audit.Write(ctx, qtx, entityAccount, accountID, &accountID, "created", "", "active", nil)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("account created", zap.String("account_id", accountID.String()))
	return accountView(created), nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	acc, err := s.store.Queries().GetAccount(ctx, repository.ToPgUUID(accountID))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return accountView(acc), nil
}

// GetAccountByEmail is used by the development login.
func (s *AccountService) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	acc, err := s.store.Queries().GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return accountView(acc), nil
}

func (s *AccountService) GetBalances(ctx context.Context, accountID uuid.UUID) ([]models.Balance, error) {
	rows, err := s.store.Queries().ListBalances(ctx, repository.ToPgUUID(accountID))
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	out := make([]models.Balance, 0, len(rows))
	for _, b := range rows {
		out = append(out, models.Balance{
			Currency:  b.Currency,
			Amount:    repository.Decimal(b.Amount),
			UpdatedAt: b.UpdatedAt,
		})
	}
	return out, nil
}

// GetStatement returns a page of the account's mutation log, newest first.
func (s *AccountService) GetStatement(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]models.Entry, error) {
	if page < 1 {
		page = 1
	}
	limit, _ := clampPage(pageSize, 0)
	offset := int32(page-1) * limit

	rows, err := s.store.Queries().ListMutationRecords(ctx, repository.ListMutationRecordsParams{
		AccountID: repository.ToPgUUID(accountID),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list mutation records: %w", err)
	}
	entries := make([]models.Entry, 0, len(rows))
	for _, m := range rows {
		entries = append(entries, models.Entry{
			ID:            repository.FromPgUUID(m.ID),
			Direction:     m.Direction,
			Amount:        repository.Decimal(m.Amount),
			Currency:      m.Currency,
			Description:   m.Description,
			CorrelationID: m.CorrelationID,
			CreatedAt:     m.CreatedAt,
		})
	}
	return entries, nil
}

// SetTier records the verification tier decided by the identity workflow.
func (s *AccountService) SetTier(ctx context.Context, actorID, accountID uuid.UUID, tier int) (*models.Account, error) {
	if tier < domain.Tier0 || tier > domain.Tier2 {
		return nil, domain.NewValidationError("tier", "must be between %d and %d", domain.Tier0, domain.Tier2)
	}

	var updated repository.Account
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		prev, err := qtx.GetAccount(ctx, repository.ToPgUUID(accountID))
		if err != nil {
			if isNoRows(err) {
				return domain.ErrAccountNotFound
			}
			return fmt.Errorf("load account: %w", err)
		}
		rows, err := qtx.UpdateAccountTier(ctx, repository.UpdateAccountTierParams{
			VerificationTier: int16(tier),
			ID:               prev.ID,
		})
		if err != nil {
			return fmt.Errorf("update tier: %w", err)
		}
		if err := requireExactlyOne(rows, "update account tier"); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, entityAccount, accountID, &actorID, "tier_changed",
			fmt.Sprintf("tier_%d", prev.VerificationTier), fmt.Sprintf("tier_%d", tier), nil); err != nil {
			return err
		}
		updated, err = qtx.GetAccount(ctx, prev.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return accountView(updated), nil
}

// Deactivate blocks further transfers from the account. Accounts are never deleted.
func (s *AccountService) Deactivate(ctx context.Context, actorID, accountID uuid.UUID) error {
	return s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		rows, err := qtx.DeactivateAccount(ctx, repository.ToPgUUID(accountID))
		if err != nil {
			return fmt.Errorf("deactivate account: %w", err)
		}
		if rows == 0 {
			if _, err := qtx.GetAccount(ctx, repository.ToPgUUID(accountID)); err != nil {
				if isNoRows(err) {
					return domain.ErrAccountNotFound
				}
				return fmt.Errorf("load account: %w", err)
			}
			return nil
		}
		return s.audit.Write(ctx, qtx, entityAccount, accountID, &actorID, "deactivated", "active", "inactive", nil)
	})
}
