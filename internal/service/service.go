package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"medorder/backend/internal/cache"
	"medorder/backend/internal/domain"
	"medorder/backend/internal/download"
	"medorder/backend/internal/metrics"
	"medorder/backend/internal/statement"
	"medorder/backend/internal/store"
	"medorder/backend/internal/xid"
)

var (
	ErrAdminRequired   = errors.New("admin role required")
	ErrUnauthenticated = errors.New("authentication required")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Deps are the collaborators of a Service. Repo, Statements and Downloads
// are required; everything else falls back to an in-process default.
type Deps struct {
	Repo       store.Repository
	Drafts     cache.DraftCache
	Identity   IdentityProvider
	Mailer     Mailer
	Statements *statement.Builder
	Downloads  *download.Manager
	Logger     *zap.Logger
	Metrics    *metrics.Metrics

	ExportDir  string
	DraftTTL   time.Duration
	SessionTTL time.Duration
}

type Service struct {
	repo       store.Repository
	drafts     cache.DraftCache
	identity   IdentityProvider
	mailer     Mailer
	statements *statement.Builder
	downloads  *download.Manager
	sessions   *SessionRegistry
	logger     *zap.Logger
	metrics    *metrics.Metrics
	exportDir  string
	draftTTL   time.Duration
	now        func() time.Time
}

func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Drafts == nil {
		deps.Drafts = cache.NewMemoryDraftCache()
	}
	if deps.Identity == nil {
		deps.Identity = NewLocalIdentity(deps.Repo)
	}
	if deps.Mailer == nil {
		deps.Mailer = NewLogMailer(logger)
	}
	if deps.DraftTTL <= 0 {
		deps.DraftTTL = cache.DefaultDraftTTL
	}
	if deps.ExportDir == "" {
		deps.ExportDir = "exports"
	}

	return &Service{
		repo:       deps.Repo,
		drafts:     deps.Drafts,
		identity:   deps.Identity,
		mailer:     deps.Mailer,
		statements: deps.Statements,
		downloads:  deps.Downloads,
		sessions:   NewSessionRegistry(deps.SessionTTL, logger),
		logger:     logger,
		metrics:    deps.Metrics,
		exportDir:  deps.ExportDir,
		draftTTL:   deps.DraftTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Sessions exposes the wizard registry so the server can run its sweeper.
func (s *Service) Sessions() *SessionRegistry {
	return s.sessions
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = s.now().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return domain.Actor{}, ErrUnauthenticated
	}
	return actor, nil
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, ErrAdminRequired
	}
	return actor, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		s.logger.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
	}
}
