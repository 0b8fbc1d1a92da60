package user

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"yamdb/internal/access"
	"yamdb/internal/apperr"
	"yamdb/internal/auth"
	"yamdb/internal/mail"
	"yamdb/internal/testutil"
	"yamdb/pkg/models"
)

var secret = []byte("test-secret")

func newService(t *testing.T) (*Service, *mail.Outbox) {
	t.Helper()
	db := testutil.OpenTestDB(t)
	outbox := &mail.Outbox{}
	svc := NewService(db, outbox, Config{JWTSecret: secret, TokenTTL: time.Hour, MailFrom: "noreply@yamdb.local"})
	return svc, outbox
}

func lastCode(t *testing.T, o *mail.Outbox) string {
	t.Helper()
	msg, ok := o.Last()
	require.True(t, ok, "no email sent")
	_, code, found := strings.Cut(msg.Body, ": ")
	require.True(t, found)
	return code
}

func ptr[T any](v T) *T { return &v }

func TestSignupAndToken(t *testing.T) {
	svc, outbox := newService(t)
	ctx := context.Background()

	out, err := svc.Signup(ctx, SignupInput{Username: "bob", Email: "b@x.com"})
	require.NoError(t, err)
	assert.Equal(t, SignupInput{Username: "bob", Email: "b@x.com"}, out)

	msg, _ := outbox.Last()
	assert.Equal(t, []string{"b@x.com"}, msg.To)
	assert.Equal(t, "noreply@yamdb.local", msg.From)
	code := lastCode(t, outbox)
	assert.Len(t, code, auth.CodeLength)

	tok, err := svc.ObtainToken(ctx, TokenInput{Username: "bob", ConfirmationCode: code})
	require.NoError(t, err)
	claims, err := auth.ParseJWT(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.Username)

	who, err := svc.Requester(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, who.Role)

	// code stays valid after exchange
	_, err = svc.ObtainToken(ctx, TokenInput{Username: "bob", ConfirmationCode: code})
	assert.NoError(t, err)
}

func TestSignupIsIdempotentByIdentifier(t *testing.T) {
	svc, outbox := newService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, SignupInput{Username: "bob", Email: "b@x.com"})
	require.NoError(t, err)
	first := lastCode(t, outbox)

	_, err = svc.Signup(ctx, SignupInput{Username: "bob", Email: "b@x.com"})
	require.NoError(t, err)
	second := lastCode(t, outbox)
	assert.NotEqual(t, first, second)

	_, err = svc.ObtainToken(ctx, TokenInput{Username: "bob", ConfirmationCode: first})
	assert.True(t, errors.Is(err, apperr.ErrValidation), "old code is overwritten")
	_, err = svc.ObtainToken(ctx, TokenInput{Username: "bob", ConfirmationCode: second})
	assert.NoError(t, err)
}

func TestSignupRejects(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, SignupInput{Username: "bob", Email: "b@x.com"})
	require.NoError(t, err)

	tests := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{"me", SignupInput{Username: "me", Email: "me@x.com"}, "username"},
		{"username with other email", SignupInput{Username: "bob", Email: "other@x.com"}, "username"},
		{"email of other user", SignupInput{Username: "robert", Email: "b@x.com"}, "email"},
		{"bad email", SignupInput{Username: "alice", Email: "alice"}, "email"},
		{"bad username", SignupInput{Username: "al ice", Email: "a@x.com"}, "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.in)
			var ae *apperr.Error
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, apperr.KindValidation, ae.Kind)
			assert.Contains(t, ae.Fields, tt.field)
		})
	}
}

func TestSignupMailFailure(t *testing.T) {
	svc, outbox := newService(t)
	outbox.Err = errors.New("smtp down")

	_, err := svc.Signup(context.Background(), SignupInput{Username: "bob", Email: "b@x.com"})
	assert.True(t, errors.Is(err, apperr.ErrUnavailable))
	assert.ErrorContains(t, err, "smtp down")
}

func TestObtainTokenErrors(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.ObtainToken(ctx, TokenInput{Username: "nobody", ConfirmationCode: "x"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = svc.Signup(ctx, SignupInput{Username: "bob", Email: "b@x.com"})
	require.NoError(t, err)
	_, err = svc.ObtainToken(ctx, TokenInput{Username: "bob", ConfirmationCode: "wrong"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = svc.ObtainToken(ctx, TokenInput{Username: "bob"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestBlankStoredCodeNeverMatches(t *testing.T) {
	svc, _ := newService(t)
	testutil.CreateUser(t, svc.db, "carol", models.RoleUser)

	_, err := svc.ObtainToken(context.Background(), TokenInput{Username: "carol", ConfirmationCode: " "})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestRequesterUnknownUser(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Requester(context.Background(), 42)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestMe(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	bob := testutil.CreateUser(t, svc.db, "bob", models.RoleUser)

	_, err := svc.Me(ctx, testutil.Get(access.Anonymous()))
	assert.True(t, errors.Is(err, apperr.ErrNotAuthenticated))

	me, err := svc.Me(ctx, testutil.Get(testutil.As(bob)))
	require.NoError(t, err)
	assert.Equal(t, "bob", me.Username)

	admin := models.RoleAdmin
	updated, err := svc.UpdateMe(ctx, testutil.Patch(testutil.As(bob)), Patch{Bio: ptr("hi"), Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, "hi", updated.Bio)
	assert.Equal(t, models.RoleUser, updated.Role, "role is ignored on /me")
}

func TestAdminCRUD(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	admin := testutil.As(testutil.CreateUser(t, svc.db, "admin", models.RoleAdmin))
	plain := testutil.As(testutil.CreateUser(t, svc.db, "plain", models.RoleUser))

	_, _, err := svc.List(ctx, testutil.Get(plain), "", 10, 0)
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))
	_, _, err = svc.List(ctx, testutil.Get(access.Anonymous()), "", 10, 0)
	assert.True(t, errors.Is(err, apperr.ErrNotAuthenticated))

	mod := models.RoleModerator
	u, err := svc.Create(ctx, testutil.Post(admin), Input{Username: "mike", Email: "m@x.com", Role: &mod})
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, u.Role)

	_, err = svc.Create(ctx, testutil.Post(admin), Input{Username: "mike", Email: "m2@x.com"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = svc.Create(ctx, testutil.Post(admin), Input{Username: "me", Email: "me@x.com"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	users, total, err := svc.List(ctx, testutil.Get(admin), "", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "mike", users[0].Username, "newest first")

	users, total, err = svc.List(ctx, testutil.Get(admin), "ik", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, users, 1)

	got, err := svc.PartialUpdate(ctx, testutil.Patch(admin), "mike", Patch{Bio: ptr("mod")})
	require.NoError(t, err)
	assert.Equal(t, "mod", got.Bio)
	assert.Equal(t, models.RoleModerator, got.Role)

	got, err = svc.Update(ctx, testutil.Put(admin), "mike", Input{Username: "michael", Email: "m@x.com"})
	require.NoError(t, err)
	assert.Equal(t, "michael", got.Username)
	assert.Equal(t, "mod", got.Bio, "omitted optional fields are kept")

	_, err = svc.PartialUpdate(ctx, testutil.Patch(admin), "michael", Patch{Email: ptr("plain@example.com")})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	require.NoError(t, svc.Delete(ctx, testutil.Delete(admin), "michael"))
	_, err = svc.Get(ctx, testutil.Get(admin), "michael")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestSuperuserIsAdminEquivalent(t *testing.T) {
	svc, _ := newService(t)
	root := testutil.As(testutil.CreateSuperuser(t, svc.db, "root"))

	_, _, err := svc.List(context.Background(), testutil.Get(root), "", 10, 0)
	assert.NoError(t, err)
}

func TestCreateSuperuser(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	u, err := svc.CreateSuperuser(ctx, "root", "root@x.com", "s3cret")
	require.NoError(t, err)
	assert.True(t, u.IsSuperuser)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret")))

	testutil.CreateUser(t, svc.db, "bob", models.RoleUser)
	promoted, err := svc.CreateSuperuser(ctx, "bob", "bob@example.com", "")
	require.NoError(t, err)
	assert.True(t, promoted.IsSuperuser)

	who, err := svc.Requester(ctx, promoted.ID)
	require.NoError(t, err)
	assert.True(t, who.IsSuperuser)
}
