package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yamdb/internal/apperr"
	"yamdb/pkg/models"
)

type sample struct {
	Username string       `json:"username" validate:"required,max=150,username,notme"`
	Email    string       `json:"email" validate:"required,max=254,email"`
	Slug     string       `json:"slug" validate:"omitempty,max=50,slug"`
	Score    int          `json:"score" validate:"min=1,max=10"`
	Role     *models.Role `json:"role" validate:"omitempty,role"`
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	return ae.Fields
}

func TestStructValid(t *testing.T) {
	admin := models.RoleAdmin
	err := Struct(sample{Username: "bob.smith+1@x", Email: "b@x.com", Slug: "sci-fi_2", Score: 10, Role: &admin})
	assert.NoError(t, err)
}

func TestStructFieldErrors(t *testing.T) {
	bogus := models.Role("god")
	tests := []struct {
		name  string
		in    sample
		field string
		msg   string
	}{
		{"missing username", sample{Email: "b@x.com", Score: 1}, "username", "This field is required."},
		{"username me", sample{Username: "me", Email: "b@x.com", Score: 1}, "username", `Using "me" as a username is not allowed.`},
		{"bad username chars", sample{Username: "bob smith", Email: "b@x.com", Score: 1}, "username", "Enter a valid username"},
		{"long username", sample{Username: strings.Repeat("a", 151), Email: "b@x.com", Score: 1}, "username", "no more than 150 characters"},
		{"bad email", sample{Username: "bob", Email: "nope", Score: 1}, "email", "Enter a valid email address."},
		{"bad slug", sample{Username: "bob", Email: "b@x.com", Slug: "a b", Score: 1}, "slug", "Enter a valid slug"},
		{"score too high", sample{Username: "bob", Email: "b@x.com", Score: 11}, "score", "less than or equal to 10"},
		{"score too low", sample{Username: "bob", Email: "b@x.com", Score: 0}, "score", "greater than or equal to 1"},
		{"unknown role", sample{Username: "bob", Email: "b@x.com", Score: 1, Role: &bogus}, "role", `"god" is not a valid choice.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := fieldsOf(t, Struct(tt.in))
			require.Contains(t, fields, tt.field)
			assert.Contains(t, fields[tt.field][0], tt.msg)
		})
	}
}
