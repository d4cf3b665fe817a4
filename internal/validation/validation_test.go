package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	Street string `json:"street" validate:"required"`
	City   string `json:"city" validate:"required"`
}

type payload struct {
	Email    string  `json:"email" validate:"required,email"`
	Quantity int     `json:"quantity" validate:"min=1"`
	Address  address `json:"shippingAddress"`
}

func TestStruct_FieldMessages(t *testing.T) {
	err := Struct(payload{Email: "nope", Quantity: 0, Address: address{Street: "1 Main"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "please include a valid email", verr.Fields["email"])
	assert.Equal(t, "quantity must be at least 1", verr.Fields["quantity"])
	assert.Equal(t, "city is required", verr.Fields["shippingAddress.city"])
	assert.NotContains(t, verr.Fields, "shippingAddress.street")
}

func TestStruct_Valid(t *testing.T) {
	err := Struct(payload{Email: "a@b.co", Quantity: 2, Address: address{Street: "s", City: "c"}})
	assert.NoError(t, err)
}

func TestField(t *testing.T) {
	err := Field("orderStatus", "invalid")
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "orderStatus")
}
