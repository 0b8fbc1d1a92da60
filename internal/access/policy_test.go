package access

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"yamdb/internal/apperr"
	"yamdb/pkg/models"
)

type owned int64

func (o owned) OwnerID() int64 { return int64(o) }

var (
	anon      = Anonymous()
	plain     = Requester{UserID: 1, Username: "alice", Role: models.RoleUser}
	other     = Requester{UserID: 2, Username: "bob", Role: models.RoleUser}
	moderator = Requester{UserID: 3, Username: "mod", Role: models.RoleModerator}
	admin     = Requester{UserID: 4, Username: "root", Role: models.RoleAdmin}
	superuser = Requester{UserID: 5, Username: "su", Role: models.RoleUser, IsSuperuser: true}
)

func TestSafeMethods(t *testing.T) {
	for _, m := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		assert.True(t, NewRequest(m, anon).Safe(), m)
	}
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		assert.False(t, NewRequest(m, anon).Safe(), m)
	}
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		method string
		who    Requester
		want   bool
	}{
		{"owner policy read anonymous", OwnerOrStaffOrReadOnly{}, http.MethodGet, anon, true},
		{"owner policy create anonymous", OwnerOrStaffOrReadOnly{}, http.MethodPost, anon, false},
		{"owner policy create user", OwnerOrStaffOrReadOnly{}, http.MethodPost, plain, true},

		{"admin-or-read read anonymous", AdminOrReadOnly{}, http.MethodGet, anon, true},
		{"admin-or-read write anonymous", AdminOrReadOnly{}, http.MethodPost, anon, false},
		{"admin-or-read write user", AdminOrReadOnly{}, http.MethodPost, plain, false},
		{"admin-or-read write moderator", AdminOrReadOnly{}, http.MethodDelete, moderator, false},
		{"admin-or-read write admin", AdminOrReadOnly{}, http.MethodPost, admin, true},
		{"admin-or-read write superuser", AdminOrReadOnly{}, http.MethodPatch, superuser, true},

		{"user role user", UserRole{}, http.MethodGet, plain, true},
		{"user role anonymous", UserRole{}, http.MethodGet, anon, false},
		{"user role moderator", UserRole{}, http.MethodGet, moderator, false},
		{"user role admin", UserRole{}, http.MethodGet, admin, false},
		{"user role superuser admin", UserRole{}, http.MethodGet, Requester{UserID: 9, Role: models.RoleAdmin, IsSuperuser: true}, false},

		{"moderator role moderator", ModeratorRole{}, http.MethodPost, moderator, true},
		{"moderator role admin", ModeratorRole{}, http.MethodPost, admin, false},
		{"moderator role superuser", ModeratorRole{}, http.MethodPost, Requester{UserID: 9, Role: models.RoleUser, IsSuperuser: true}, false},

		{"admin role admin", AdminRole{}, http.MethodGet, admin, true},
		{"admin role superuser", AdminRole{}, http.MethodDelete, superuser, true},
		{"admin role moderator", AdminRole{}, http.MethodGet, moderator, false},
		{"admin role anonymous", AdminRole{}, http.MethodGet, anon, false},

		{"authenticated user", Authenticated{}, http.MethodPatch, plain, true},
		{"authenticated anonymous", Authenticated{}, http.MethodGet, anon, false},
		{"allow any", AllowAny{}, http.MethodPost, anon, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.HasPermission(NewRequest(tt.method, tt.who)))
		})
	}
}

func TestOwnerOrStaffObjectLevel(t *testing.T) {
	resource := owned(plain.UserID)
	tests := []struct {
		name   string
		method string
		who    Requester
		want   bool
	}{
		{"anyone reads", http.MethodGet, anon, true},
		{"other user reads", http.MethodGet, other, true},
		{"owner patches", http.MethodPatch, plain, true},
		{"owner deletes", http.MethodDelete, plain, true},
		{"other user patches", http.MethodPatch, other, false},
		{"other user deletes", http.MethodDelete, other, false},
		{"moderator deletes", http.MethodDelete, moderator, true},
		{"admin patches", http.MethodPatch, admin, true},
		{"superuser deletes", http.MethodDelete, superuser, true},
		{"anonymous deletes", http.MethodDelete, anon, false},
	}

	p := OwnerOrStaffOrReadOnly{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.HasObjectPermission(NewRequest(tt.method, tt.who), resource))
		})
	}
}

func TestCheckMapsDenialToErrorKind(t *testing.T) {
	err := Check(AdminOrReadOnly{}, NewRequest(http.MethodPost, anon))
	assert.True(t, errors.Is(err, apperr.ErrNotAuthenticated))

	err = Check(AdminOrReadOnly{}, NewRequest(http.MethodPost, plain))
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))

	assert.NoError(t, Check(AdminOrReadOnly{}, NewRequest(http.MethodPost, admin)))
}

func TestCheckObject(t *testing.T) {
	err := CheckObject(OwnerOrStaffOrReadOnly{}, NewRequest(http.MethodDelete, other), owned(plain.UserID))
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))

	assert.NoError(t, CheckObject(OwnerOrStaffOrReadOnly{}, NewRequest(http.MethodDelete, admin), owned(plain.UserID)))

	// no object stage
	assert.NoError(t, CheckObject(AdminRole{}, NewRequest(http.MethodDelete, other), owned(plain.UserID)))
}
