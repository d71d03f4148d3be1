package repository

import (
	"context"
	"testing"

	"rewards_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestRequestWithdrawal_NilPaymentMethod(t *testing.T) {
	r := &Repository{}

	w, balance, n, err := r.RequestWithdrawal(context.Background(), &model.User{UID: "user-1", Coins: 1000}, 10, 100)

	assert.ErrorIs(t, err, ErrNoPaymentMethod)
	assert.Nil(t, w)
	assert.Zero(t, balance)
	assert.Nil(t, n)
}
