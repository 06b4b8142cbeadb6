package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/estore-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_ValidRegister(t *testing.T) {
	err := Struct(domain.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(domain.RegisterRequest{Name: "", Email: "not-an-email", Password: "123"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))

	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid Request", de.Message)

	details, ok := de.Details.([]Detail)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "body", details[0].Path)

	fields := map[string]string{}
	for _, is := range details[0].Errors {
		fields[is.Path[0]] = is.Code
	}
	assert.Equal(t, "required", fields["name"])
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "min", fields["password"])
}

func TestStruct_RegisterMaxLength(t *testing.T) {
	err := Struct(domain.RegisterRequest{Name: strings.Repeat("n", 256), Email: "a@b.co", Password: "secret1"})
	require.Error(t, err)
	de, _ := domain.AsError(err)
	details := de.Details.([]Detail)
	assert.Equal(t, "max", details[0].Errors[0].Code)
}

func TestStruct_OTPMustBeFourDigits(t *testing.T) {
	assert.NoError(t, Struct(domain.VerifyRequest{OTP: "1234"}))
	assert.Error(t, Struct(domain.VerifyRequest{OTP: "123"}))
	assert.Error(t, Struct(domain.VerifyRequest{OTP: "12345"}))
	assert.Error(t, Struct(domain.VerifyRequest{OTP: "12a4"}))
}
