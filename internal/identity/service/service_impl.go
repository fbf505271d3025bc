package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/kograph/internal/clock"
	identitydomain "github.com/smallbiznis/kograph/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultListLimit = 50

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     identitydomain.Repository
	Verifier identitydomain.Verifier
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     identitydomain.Repository
	verifier identitydomain.Verifier
	clock    clock.Clock
}

func NewService(p Params) identitydomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("identity.service"),
		repo:     p.Repo,
		verifier: p.Verifier,
		clock:    p.Clock,
	}
}

func (s *Service) ResolveUserID(ctx context.Context, token string) (string, error) {
	userID, err := s.verifier.Verify(ctx, token)
	if err != nil {
		if !errors.Is(err, identitydomain.ErrUnauthorized) {
			s.log.Error("token verification failed", zap.Error(err))
		}
		return "", identitydomain.ErrUnauthorized
	}
	return userID, nil
}

func (s *Service) Profile(ctx context.Context, userID string) (*identitydomain.Profile, error) {
	return s.ProfileTx(ctx, s.db, userID)
}

// ProfileTx falls back to a plain, unblocked user when the provider never
// wrote a row.
func (s *Service) ProfileTx(ctx context.Context, tx *gorm.DB, userID string) (*identitydomain.Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, identitydomain.ErrInvalidUser
	}
	profile, err := s.repo.FindByID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return &identitydomain.Profile{ID: userID, Role: identitydomain.RoleUser}, nil
	}
	profile.Role = identitydomain.NormalizeRole(string(profile.Role))
	return profile, nil
}

func (s *Service) SetWithdrawBlocked(ctx context.Context, tx *gorm.DB, userID string, blocked bool) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return identitydomain.ErrInvalidUser
	}
	if tx == nil {
		tx = s.db
	}
	return s.repo.UpsertWithdrawBlocked(ctx, tx, &identitydomain.Profile{
		ID:                userID,
		Role:              identitydomain.RoleUser,
		IsWithdrawBlocked: blocked,
		CreatedAt:         s.clock.Now(),
	})
}

func (s *Service) ListProfiles(ctx context.Context, limit int) ([]identitydomain.Profile, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	profiles, err := s.repo.List(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		profiles[i].Role = identitydomain.NormalizeRole(string(profiles[i].Role))
	}
	return profiles, nil
}
