package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestWrappedErrorsMatchSentinels(t *testing.T) {
	cause := errors.New("permission denied")

	tests := []struct {
		name     string
		err      error
		sentinel error
		status   int
	}{
		{"write failed", WriteFailed(cause), ErrWriteFailed, StatusBadGateway},
		{"read failed", ReadFailed(cause), ErrReadFailed, StatusBadGateway},
		{"subscription failed", SubscriptionFailed(cause), ErrSubscriptionFailed, StatusBadGateway},
		{"store unavailable", StoreUnavailable(cause), ErrStoreUnavailable, StatusServiceUnavailable},
		{"unknown collection", UnknownCollection("invoices"), ErrUnknownCollection, StatusBadRequest},
		{"read timeout", ReadTimeout(nil), ErrReadTimeout, StatusGatewayTimeout},
		{"invalid input", InvalidInput(map[string]string{"phone": "required"}), ErrInvalidInput, StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.status, StatusCodeOf(tt.err))
		})
	}
}

func TestErrorCarriesCause(t *testing.T) {
	err := WriteFailed(ErrNotFound)

	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrReadFailed)
	assert.Contains(t, err.Error(), MsgWriteFailed)
	assert.Contains(t, err.Error(), MsgNotFound)
}

func TestDistinctCodesDoNotMatch(t *testing.T) {
	assert.NotErrorIs(t, ErrReadTimeout, ErrReadFailed)
	assert.NotErrorIs(t, ErrUnknownCollection, ErrInvalidInput)
	assert.False(t, errors.Is(fmt.Errorf("plain"), ErrNotFound))
}

func TestUnknownCollectionDetails(t *testing.T) {
	var e *Error
	assert.True(t, errors.As(UnknownCollection("invoices"), &e))
	assert.Equal(t, map[string]string{"collection": "invoices"}, e.Details)
}

func TestStatusCodeOfPlainError(t *testing.T) {
	assert.Equal(t, StatusInternalServerError, StatusCodeOf(errors.New("boom")))
}

func TestConvertMongoError(t *testing.T) {
	assert.Nil(t, ConvertMongoError(nil))
	assert.ErrorIs(t, ConvertMongoError(mongo.ErrNoDocuments), ErrNotFound)
	assert.ErrorIs(t, ConvertMongoError(fmt.Errorf("find: %w", mongo.ErrNoDocuments)), ErrNotFound)
	assert.ErrorIs(t, ConvertMongoError(context.DeadlineExceeded), context.DeadlineExceeded)
	assert.ErrorIs(t, ConvertMongoError(mongo.ErrClientDisconnected), ErrConnection)

	generic := ConvertMongoError(errors.New("weird"))
	assert.ErrorIs(t, generic, ErrDatabaseQuery)

	already := WriteFailed(errors.New("x"))
	assert.Same(t, already, ConvertMongoError(already))
}
