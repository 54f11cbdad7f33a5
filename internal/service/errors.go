package service

import (
	"errors"
	"fmt"
	"strings"

	"nine-pos/internal/models"

	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned by login for an unknown email or a wrong
// password. The two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// NotFoundError reports an unknown product, sale, sale item or user.
type NotFoundError struct {
	Resource string
	ID       uint
	Missing  []uint // set when a batch lookup fails
}

func (e *NotFoundError) Error() string {
	if len(e.Missing) > 0 {
		ids := make([]string, len(e.Missing))
		for i, id := range e.Missing {
			ids[i] = fmt.Sprint(id)
		}
		return fmt.Sprintf("%s not found: %s", e.Resource, strings.Join(ids, ", "))
	}
	if e.ID == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// InsufficientStockError reports a requested quantity above available stock.
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductName, e.Available, e.Requested)
}

// AuthorizationError reports a caller lacking the role for an operation.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// PersistenceError wraps an unexpected database failure. Its message is
// opaque; the cause is kept for logging.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "persistence failure: " + e.Op }

func (e *PersistenceError) Unwrap() error { return e.Err }

// persistence classifies err from a database call. Errors that already
// belong to the taxonomy pass through untouched.
func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		ve  *ValidationError
		nf  *NotFoundError
		ins *InsufficientStockError
		az  *AuthorizationError
		pe  *PersistenceError
	)
	switch {
	case errors.As(err, &ve), errors.As(err, &nf), errors.As(err, &ins), errors.As(err, &az), errors.As(err, &pe):
		return err
	case errors.Is(err, models.ErrNegativeStock):
		return invalid("stock", models.ErrNegativeStock.Error())
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return invalid("", "record already exists")
	}
	return &PersistenceError{Op: op, Err: err}
}

func notFoundOr(op, resource string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Resource: resource, ID: id}
	}
	return persistence(op, err)
}
