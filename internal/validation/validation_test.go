package validation

import (
	"errors"
	"testing"

	"github.com/ayo6706/multicurrency-wallet/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Amount   string `json:"amount" validate:"required,decimal_gt0"`
	Currency string `json:"currency" validate:"required,currency"`
	Kind     string `json:"kind" validate:"oneof=A B"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Amount: "-1", Currency: "USD", Kind: "A"})
	require.Error(t, err)
	require.True(t, errors.Is(err, domain.ErrValidation))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "amount", ve.Field)
}

func TestStructAcceptsValidInput(t *testing.T) {
	require.NoError(t, Struct(sample{Amount: "10.50", Currency: "eur", Kind: "B"}))

	err := Struct(sample{Amount: "1", Currency: "XYZ", Kind: "A"})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "currency", ve.Field)
}
