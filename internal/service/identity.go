package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"medorder/backend/internal/domain"
	"medorder/backend/internal/gateway"
	"medorder/backend/internal/store"
	"medorder/backend/internal/xid"
)

// IdentityProvider owns login accounts for customers. The profile id of a
// customer is the id this provider hands back.
type IdentityProvider interface {
	CreateUser(ctx context.Context, req gateway.CreateUserRequest) (string, error)
	DeleteUser(ctx context.Context, userID string) error
}

type Mailer interface {
	SendEmail(ctx context.Context, email gateway.Email) error
}

// LocalIdentity stores customer accounts in the repository's users table.
// It is used when no identity gateway is configured.
type LocalIdentity struct {
	repo store.Repository
}

func NewLocalIdentity(repo store.Repository) *LocalIdentity {
	return &LocalIdentity{repo: repo}
}

func (l *LocalIdentity) CreateUser(ctx context.Context, req gateway.CreateUserRequest) (string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return "", store.ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	role := req.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	id := xid.New("usr")
	if err := l.repo.CreateUser(ctx, domain.UserAccount{
		ID:       id,
		Username: email,
		Password: string(hash),
		Role:     role,
		Active:   true,
	}); err != nil {
		return "", err
	}
	return id, nil
}

func (l *LocalIdentity) DeleteUser(ctx context.Context, userID string) error {
	return l.repo.DeleteUser(ctx, userID)
}

// LogMailer records outgoing mail in the log instead of sending it.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendEmail(_ context.Context, email gateway.Email) error {
	m.logger.Info("email queued",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.String("template", email.Template),
	)
	return nil
}

// identityGone reports whether a delete failed only because the account
// no longer exists.
func identityGone(err error) bool {
	if errors.Is(err, store.ErrNotFound) {
		return true
	}
	var reqErr *gateway.RequestError
	return errors.As(err, &reqErr) && reqErr.Status == http.StatusNotFound
}
