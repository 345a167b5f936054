package service

import (
	"context"
	"log/slog"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
)

// Notifier delivers account messages. Delivery is fire-and-forget; a
// failure never fails the operation that triggered it.
type Notifier interface {
	SendVerification(ctx context.Context, acct domain.Account, token string)
}

// LogNotifier writes the verification link to the log instead of sending
// mail.
type LogNotifier struct {
	Logger *slog.Logger

	// BaseURL prefixes the verification link, e.g. https://auth.example.com.
	BaseURL string
}

func (n LogNotifier) SendVerification(_ context.Context, acct domain.Account, token string) {
	n.Logger.Info("verification email",
		"account_id", acct.ID,
		"email", acct.Email,
		"link", n.BaseURL+"/v1/auth/verify-email?token="+token,
	)
}
