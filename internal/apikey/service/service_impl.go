package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	apikeydomain "github.com/smallbiznis/kograph/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/kograph/internal/audit/domain"
	"github.com/smallbiznis/kograph/internal/changefeed"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	apiKeyPrefix      = "kg_"
	apiKeyPrefixBytes = 4
	apiKeySecretBytes = 24
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     apikeydomain.Repository
	AuditSvc auditdomain.Service
	Clock    clock.Clock
	Policy   *config.PolicyHolder `optional:"true"`
	Notifier changefeed.Notifier  `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     apikeydomain.Repository
	auditSvc auditdomain.Service
	clock    clock.Clock
	policy   *config.PolicyHolder
	notifier changefeed.Notifier
}

func New(p Params) apikeydomain.Service {
	notifier := p.Notifier
	if notifier == nil {
		notifier = changefeed.Noop{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("apikey.service"),
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
		clock:    p.Clock,
		policy:   p.Policy,
		notifier: notifier,
	}
}

func (s *Service) List(ctx context.Context, userID string) ([]apikeydomain.Response, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apikeydomain.ErrInvalidUser
	}

	items, err := s.repo.List(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]apikeydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, userID string, name string) (*apikeydomain.SecretResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apikeydomain.ErrInvalidUser
	}

	policy := s.policy.Get().APIKey
	name = truncate(strings.TrimSpace(name), policy.NameMaxLength)
	if name == "" {
		name = policy.DefaultName
	}

	prefix, plain, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	key := &apikeydomain.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		KeyPrefix: prefix,
		KeyHash:   apikeydomain.HashAPIKey(plain),
		CreatedAt: s.clock.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, key); err != nil {
			return err
		}
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Event{
			Action:        auditdomain.ActionAPIKeyCreated,
			ActorUserID:   userID,
			SubjectUserID: userID,
			Details: auditdomain.APIKeyCreatedDetails{
				APIKeyID:  key.ID,
				Name:      key.Name,
				KeyPrefix: key.KeyPrefix,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, changefeed.OpInsert, key.ID, key.UserID)
	return &apikeydomain.SecretResponse{APIKey: plain, ID: key.ID, KeyPrefix: key.KeyPrefix}, nil
}

func (s *Service) Validate(ctx context.Context, token string) (*apikeydomain.APIKey, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apikeydomain.ErrMissingAPIKey
	}

	hash := apikeydomain.HashAPIKey(token)
	key, err := s.repo.FindByHash(ctx, s.db, hash)
	if err != nil {
		return nil, err
	}
	if key == nil || key.Revoked() {
		return nil, apikeydomain.ErrInvalidAPIKey
	}

	presented, err := hex.DecodeString(hash)
	if err != nil {
		return nil, apikeydomain.ErrInvalidAPIKey
	}
	stored, err := hex.DecodeString(key.KeyHash)
	if err != nil || subtle.ConstantTimeCompare(presented, stored) != 1 {
		return nil, apikeydomain.ErrInvalidAPIKey
	}
	return key, nil
}

func (s *Service) Revoke(ctx context.Context, keyID string, ownerUserID string) error {
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return apikeydomain.ErrInvalidKeyID
	}
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return apikeydomain.ErrInvalidUser
	}
	// Ids are UUID columns; anything else cannot match a key.
	if _, err := uuid.Parse(keyID); err != nil {
		return nil
	}

	now := s.clock.Now()
	var revoked bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.Revoke(ctx, tx, keyID, ownerUserID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		revoked = true
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Event{
			Action:        auditdomain.ActionAPIKeyRevoked,
			ActorUserID:   ownerUserID,
			SubjectUserID: ownerUserID,
			Details:       auditdomain.APIKeyRevokedDetails{APIKeyID: keyID},
		})
	})
	if err != nil {
		return err
	}

	if revoked {
		s.notify(ctx, changefeed.OpUpdate, keyID, ownerUserID)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, op, keyID, userID string) {
	s.notifier.Notify(ctx, changefeed.Change{
		Table:  changefeed.TableAPIKeys,
		Op:     op,
		ID:     keyID,
		UserID: userID,
		At:     s.clock.Now(),
	})
}

func toResponse(key *apikeydomain.APIKey) apikeydomain.Response {
	return apikeydomain.Response{
		ID:        key.ID,
		Name:      key.Name,
		KeyPrefix: key.KeyPrefix,
		RevokedAt: key.RevokedAt,
		CreatedAt: key.CreatedAt,
	}
}

// generateAPIKey returns the public prefix and the full kg_<prefix>_<secret>
// key.
func generateAPIKey() (string, string, error) {
	prefixBytes := make([]byte, apiKeyPrefixBytes)
	if _, err := rand.Read(prefixBytes); err != nil {
		return "", "", err
	}
	secret := make([]byte, apiKeySecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return "", "", err
	}

	prefix := hex.EncodeToString(prefixBytes)
	plain := fmt.Sprintf("%s%s_%s", apiKeyPrefix, prefix, base64.RawURLEncoding.EncodeToString(secret))
	return prefix, plain, nil
}

func truncate(value string, max int) string {
	if max <= 0 || utf8.RuneCountInString(value) <= max {
		return value
	}
	return string([]rune(value)[:max])
}
