package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"nine-pos/internal/auth"
	"nine-pos/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const minPasswordLength = 6

// Actor is the authenticated caller of a user-management operation.
type Actor struct {
	ID   uint
	Role string
}

func (a Actor) isAdmin() bool { return a.Role == models.RoleAdmin }

// UserInput creates a user.
type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserUpdate changes only the fields that are set.
type UserUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

// UserPage is one page of users.
type UserPage struct {
	Users       []models.User `json:"users"`
	TotalUsers  int64         `json:"totalUsers"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
}

type UserService struct {
	db       *gorm.DB
	log      *logrus.Logger
	cache    SummaryCache
	resets   *auth.TokenManager
	notifier ResetNotifier
}

func NewUserService(db *gorm.DB, log *logrus.Logger, cache SummaryCache, resets *auth.TokenManager, notifier ResetNotifier) *UserService {
	return &UserService{db: db, log: log, cache: cache, resets: resets, notifier: notifier}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "valid email is required")
	}
	return email, nil
}

func validRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleCashier
}

// Create validates the input, hashes the password and stores the user.
// An empty role defaults to cashier.
func (s *UserService) Create(ctx context.Context, in UserInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid("password", "password must be at least 6 characters")
	}
	role := in.Role
	if role == "" {
		role = models.RoleCashier
	}
	if !validRole(role) {
		return nil, invalid("role", "role must be admin or cashier")
	}

	if err := s.ensureEmailFree(ctx, email, 0); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, persistence("hash password", err)
	}
	user := &models.User{Name: name, Email: email, Password: hash, Role: role}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, persistence("create user", err)
	}

	s.log.WithFields(logrus.Fields{"userId": user.ID, "role": role}).Info("user created")
	invalidateSummary(ctx, s.cache, s.log)
	return user, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string, exceptID uint) error {
	var n int64
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return persistence("check email", err)
	}
	if n > 0 {
		return invalid("email", "email already in use")
	}
	return nil
}

// Authenticate returns the user for a matching email and password.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, persistence("load user", err)
	}
	if !auth.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr("load user", "user", id, err)
	}
	return &user, nil
}

func (s *UserService) List(ctx context.Context, p Page) (*UserPage, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, persistence("count users", err)
	}
	page := p.normalize()
	var users []models.User
	err := s.db.WithContext(ctx).Order("id").
		Limit(page.Limit).Offset(page.offset()).
		Find(&users).Error
	if err != nil {
		return nil, persistence("list users", err)
	}
	return &UserPage{Users: users, TotalUsers: total, TotalPages: page.totalPages(total), CurrentPage: page.Number}, nil
}

// Update lets admins edit anyone and other users edit only themselves,
// without changing their own role. A new password is re-hashed here.
func (s *UserService) Update(ctx context.Context, actor Actor, id uint, upd UserUpdate) (*models.User, error) {
	if !actor.isAdmin() && actor.ID != id {
		return nil, &AuthorizationError{Message: "access denied"}
	}
	if upd.Role != nil && !actor.isAdmin() {
		return nil, &AuthorizationError{Message: "only admins can change roles"}
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, invalid("name", "name is required")
		}
		fields["name"] = name
	}
	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email)
		if err != nil {
			return nil, err
		}
		if err := s.ensureEmailFree(ctx, email, id); err != nil {
			return nil, err
		}
		fields["email"] = email
	}
	if upd.Role != nil {
		if !validRole(*upd.Role) {
			return nil, invalid("role", "role must be admin or cashier")
		}
		fields["role"] = *upd.Role
	}
	if upd.Password != nil {
		if len(*upd.Password) < minPasswordLength {
			return nil, invalid("password", "password must be at least 6 characters")
		}
		hash, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return nil, persistence("hash password", err)
		}
		fields["password"] = hash
	}
	if len(fields) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(fields).Error; err != nil {
		return nil, persistence("update user", err)
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return persistence("delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "user", ID: id}
	}
	invalidateSummary(ctx, s.cache, s.log)
	return nil
}

// RequestPasswordReset issues a reset token for email and hands it to the
// notifier.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return invalid("email", "valid email is required")
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return notFoundOr("load user", "user", 0, err)
	}

	token, err := s.resets.GenerateToken(user.ID, user.Email, "")
	if err != nil {
		return persistence("sign reset token", err)
	}
	if s.notifier == nil {
		return nil
	}
	return s.notifier.SendPasswordReset(ctx, user.Email, token)
}

// ResetPassword verifies a reset token and stores the new password hash.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return invalid("newPassword", "new password is required")
	}
	if len(newPassword) < minPasswordLength {
		return invalid("newPassword", "password must be at least 6 characters")
	}
	claims, err := s.resets.ValidateToken(token)
	if err != nil {
		return invalid("token", "reset token is invalid or has expired")
	}

	user, err := s.Get(ctx, claims.UserID)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return persistence("hash password", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hash).Error; err != nil {
		return persistence("reset password", err)
	}
	s.log.WithField("userId", user.ID).Info("password reset")
	return nil
}
