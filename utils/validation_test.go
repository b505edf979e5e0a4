package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupBody struct {
	Username string `validate:"required,min=3,max=21"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		body := signupBody{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "correcthorse",
		}
		assert.NoError(t, ValidateStruct(body))
	})

	t.Run("missing fields reported per field", func(t *testing.T) {
		err := ValidateStruct(signupBody{})
		require.Error(t, err)
		require.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "Username")
		assert.Contains(t, fields, "Email")
		assert.Contains(t, fields, "Password")
	})

	t.Run("bad email reported", func(t *testing.T) {
		err := ValidateStruct(signupBody{
			Username: "alice",
			Email:    "not-an-email",
			Password: "correcthorse",
		})
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Equal(t, "Email must be a valid email", fields["Email"])
	})

	t.Run("min length reported", func(t *testing.T) {
		err := ValidateStruct(signupBody{
			Username: "al",
			Email:    "alice@example.com",
			Password: "correcthorse",
		})
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Equal(t, "Username must be at least 3", fields["Username"])
	})
}

func TestIsValidationError(t *testing.T) {
	assert.False(t, IsValidationError(errors.New("plain error")))
	assert.False(t, IsValidationError(nil))
	assert.True(t, IsValidationError(&ValidationError{Message: "Validation failed"}))
}

func TestGetValidationFields(t *testing.T) {
	t.Run("nil for non validation errors", func(t *testing.T) {
		assert.Nil(t, GetValidationFields(errors.New("plain error")))
	})
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.NoError(t, ValidateEmail("user.name+tag@sub.example.co"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("user@"))
	assert.Error(t, ValidateEmail(""))
}
