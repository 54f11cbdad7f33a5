package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// ResetNotifier delivers a password-reset token to a user.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogNotifier writes the reset link to the log instead of sending mail.
type LogNotifier struct {
	Log     *logrus.Logger
	BaseURL string
}

func (n LogNotifier) SendPasswordReset(_ context.Context, email, token string) error {
	link := fmt.Sprintf("%s/reset-password/%s", strings.TrimRight(n.BaseURL, "/"), token)
	n.Log.WithFields(logrus.Fields{"email": email, "resetUrl": link}).Info("password reset requested")
	return nil
}
