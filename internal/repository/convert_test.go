package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTrip(t *testing.T) {
	for _, in := range []string{"0", "110.00", "101.8", "0.000001", "-42.125", "123456789012.12345678"} {
		d := decimal.RequireFromString(in)
		got := Decimal(Numeric(d))
		assert.Truef(t, d.Equal(got), "%s != %s", d, got)
	}
}

func TestDecimalFromInvalidNumeric(t *testing.T) {
	assert.True(t, Decimal(pgtype.Numeric{}).IsZero())
	assert.True(t, Decimal(pgtype.Numeric{NaN: true, Valid: true}).IsZero())
}

func TestUUIDHelpers(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, id, FromPgUUID(ToPgUUID(id)))
	assert.Equal(t, uuid.Nil, FromPgUUID(pgtype.UUID{}))
	assert.False(t, NullableUUID(nil).Valid)

	opt := OptionalUUID(ToPgUUID(id))
	require.NotNil(t, opt)
	assert.Equal(t, id, *opt)
	assert.Nil(t, OptionalUUID(pgtype.UUID{}))
}

func TestTimeHelpers(t *testing.T) {
	now := time.Now().UTC()
	ts := Timestamptz(&now)
	require.True(t, ts.Valid)
	assert.Equal(t, now, *OptionalTime(ts))
	assert.Nil(t, OptionalTime(Timestamptz(nil)))
	assert.Nil(t, TextParam(""))
	assert.Equal(t, "x", *TextParam("x"))
}
