package service

import (
	"context"
	"testing"
	"time"

	"nine-pos/internal/auth"
	"nine-pos/internal/logging"
	"nine-pos/internal/models"
	"nine-pos/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type captureNotifier struct {
	email, token string
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	n.email, n.token = email, token
	return nil
}

func newUserService(t *testing.T) (*UserService, *gorm.DB, *captureNotifier) {
	t.Helper()
	db := testutil.NewDB(t)
	n := &captureNotifier{}
	resets := auth.NewTokenManager("reset-secret", 15*time.Minute)
	return NewUserService(db, logging.Discard(), nil, resets, n), db, n
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc, db, _ := newUserService(t)

	u, err := svc.Create(context.Background(), UserInput{Name: "Ada", Email: " Ada@Example.com ", Password: "hunter22"})
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", u.Email)
	require.Equal(t, models.RoleCashier, u.Role)

	var stored models.User
	require.NoError(t, db.First(&stored, u.ID).Error)
	require.NotEqual(t, "hunter22", stored.Password)
	require.True(t, auth.CheckPassword(stored.Password, "hunter22"))

	_, err = svc.Create(context.Background(), UserInput{Name: "Other", Email: "ada@example.com", Password: "hunter22"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "email", ve.Field)
}

func TestCreateUserValidates(t *testing.T) {
	svc, _, _ := newUserService(t)

	bad := []UserInput{
		{Email: "a@b.co", Password: "secret1"},
		{Name: "A", Email: "not-an-email", Password: "secret1"},
		{Name: "A", Email: "a@b.co", Password: "short"},
		{Name: "A", Email: "a@b.co", Password: "secret1", Role: "owner"},
	}
	for _, in := range bad {
		_, err := svc.Create(context.Background(), in)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "input %+v", in)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, db, _ := newUserService(t)
	testutil.CreateUser(t, db, "Ada", "ada@example.com", "hunter22", models.RoleAdmin)

	u, err := svc.Authenticate(context.Background(), "ADA@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, u.Role)

	_, err = svc.Authenticate(context.Background(), "ada@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateUserAuthorization(t *testing.T) {
	svc, db, _ := newUserService(t)
	admin := testutil.CreateUser(t, db, "Ada", "ada@example.com", "hunter22", models.RoleAdmin)
	cashier := testutil.CreateUser(t, db, "Bob", "bob@example.com", "hunter22", models.RoleCashier)
	other := testutil.CreateUser(t, db, "Cy", "cy@example.com", "hunter22", models.RoleCashier)

	self := Actor{ID: cashier.ID, Role: models.RoleCashier}
	name := "Bobby"
	u, err := svc.Update(context.Background(), self, cashier.ID, UserUpdate{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Bobby", u.Name)

	var az *AuthorizationError
	_, err = svc.Update(context.Background(), self, other.ID, UserUpdate{Name: &name})
	require.ErrorAs(t, err, &az)

	role := models.RoleAdmin
	_, err = svc.Update(context.Background(), self, cashier.ID, UserUpdate{Role: &role})
	require.ErrorAs(t, err, &az)

	u, err = svc.Update(context.Background(), Actor{ID: admin.ID, Role: models.RoleAdmin}, other.ID, UserUpdate{Role: &role})
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, u.Role)

	pw := "newsecret"
	_, err = svc.Update(context.Background(), self, cashier.ID, UserUpdate{Password: &pw})
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), "bob@example.com", "newsecret")
	require.NoError(t, err)

	taken := "ada@example.com"
	_, err = svc.Update(context.Background(), self, cashier.ID, UserUpdate{Email: &taken})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestListAndDeleteUsers(t *testing.T) {
	svc, db, _ := newUserService(t)
	a := testutil.CreateUser(t, db, "Ada", "ada@example.com", "hunter22", models.RoleAdmin)
	testutil.CreateUser(t, db, "Bob", "bob@example.com", "hunter22", models.RoleCashier)

	page, err := svc.List(context.Background(), Page{})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.TotalUsers)
	require.Equal(t, 1, page.CurrentPage)

	require.NoError(t, svc.Delete(context.Background(), a.ID))
	var nf *NotFoundError
	require.ErrorAs(t, svc.Delete(context.Background(), a.ID), &nf)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, db, n := newUserService(t)
	testutil.CreateUser(t, db, "Ada", "ada@example.com", "hunter22", models.RoleAdmin)

	var nf *NotFoundError
	require.ErrorAs(t, svc.RequestPasswordReset(context.Background(), "ghost@example.com"), &nf)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ada@example.com"))
	require.Equal(t, "ada@example.com", n.email)
	require.NotEmpty(t, n.token)

	var ve *ValidationError
	require.ErrorAs(t, svc.ResetPassword(context.Background(), n.token, "123"), &ve)
	require.ErrorAs(t, svc.ResetPassword(context.Background(), "garbage", "brandnew"), &ve)

	require.NoError(t, svc.ResetPassword(context.Background(), n.token, "brandnew"))
	_, err := svc.Authenticate(context.Background(), "ada@example.com", "brandnew")
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), "ada@example.com", "hunter22")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
