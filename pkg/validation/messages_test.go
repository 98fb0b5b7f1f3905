package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
	Code     string `validate:"len=6,numeric"`
}

func TestMessagesForUsesCustomFieldMessages(t *testing.T) {
	err := validator.New().Struct(sampleRequest{
		Email:    "not-an-email",
		Password: "",
		Code:     "12",
	})
	require.Error(t, err)

	messages := MessagesFor(err)
	assert.Contains(t, messages, "email is not a valid address")
	assert.Contains(t, messages, "password must not be empty")
	assert.Contains(t, messages, "verification code must be 6 digits")
}

func TestMessagesForFallsBackToGenericTagMessage(t *testing.T) {
	type withUnknownField struct {
		Nickname string `validate:"required"`
	}

	err := validator.New().Struct(withUnknownField{})
	require.Error(t, err)

	messages := MessagesFor(err)
	require.Len(t, messages, 1)
	assert.Equal(t, "nickname must not be empty", messages[0])
}

func TestMessagesForHandlesNonValidationError(t *testing.T) {
	messages := MessagesFor(errors.New("unexpected EOF"))
	require.Len(t, messages, 1)
	assert.Equal(t, "request body is malformed", messages[0])
}
