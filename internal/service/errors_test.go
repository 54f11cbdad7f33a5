package service

import (
	"errors"
	"testing"

	"nine-pos/internal/models"
	"nine-pos/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPersistenceTurnsDuplicateKeyIntoValidation(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.CreateUser(t, db, "Ada", "ada@example.com", "hunter22", models.RoleAdmin)

	err := db.Create(&models.User{Name: "Other", Email: "ada@example.com", Password: "x", Role: models.RoleCashier}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var ve *ValidationError
	require.ErrorAs(t, persistence("create user", err), &ve)
	require.Equal(t, "record already exists", ve.Message)
}

func TestPersistenceClassification(t *testing.T) {
	nf := &NotFoundError{Resource: "sale", ID: 1}
	require.Same(t, nf, persistence("load sale", nf))
	require.NoError(t, persistence("noop", nil))

	var ve *ValidationError
	require.ErrorAs(t, persistence("save product", models.ErrNegativeStock), &ve)
	require.Equal(t, "stock", ve.Field)

	cause := errors.New("connection reset")
	var pe *PersistenceError
	require.ErrorAs(t, persistence("list sales", cause), &pe)
	require.ErrorIs(t, pe, cause)
	require.Equal(t, "list sales", pe.Op)

	require.ErrorAs(t, notFoundOr("load user", "user", 7, gorm.ErrRecordNotFound), &nf)
	require.Equal(t, uint(7), nf.ID)
}
