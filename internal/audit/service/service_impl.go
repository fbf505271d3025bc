package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/kograph/internal/audit/domain"
	"github.com/smallbiznis/kograph/internal/auditcontext"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	"github.com/smallbiznis/kograph/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   auditdomain.Repository
	Clock  clock.Clock
	Policy *config.PolicyHolder `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   auditdomain.Repository
	clock  clock.Clock
	policy *config.PolicyHolder
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("audit.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		clock:  p.Clock,
		policy: p.Policy,
	}
}

func (s *Service) Record(ctx context.Context, event auditdomain.Event) error {
	return s.RecordTx(ctx, s.db, event)
}

func (s *Service) RecordTx(ctx context.Context, tx *gorm.DB, event auditdomain.Event) error {
	entry, err := s.build(ctx, event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(ctx, tx, entry); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", string(event.Action)), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) build(ctx context.Context, event auditdomain.Event) (*auditdomain.AuditLog, error) {
	if strings.TrimSpace(string(event.Action)) == "" {
		return nil, auditdomain.ErrInvalidAction
	}
	if !auditdomain.DetailsAccept(event.Details, event.Action) {
		return nil, auditdomain.ErrInvalidDetails
	}
	raw, err := json.Marshal(event.Details)
	if err != nil {
		return nil, err
	}

	return &auditdomain.AuditLog{
		ID:            s.genID.Generate().Int64(),
		ActorUserID:   optional(event.ActorUserID),
		SubjectUserID: optional(event.SubjectUserID),
		Action:        event.Action,
		IP:            optional(auditcontext.IPAddressFromContext(ctx)),
		UserAgent:     optional(auditcontext.UserAgentFromContext(ctx)),
		Details:       datatypes.JSON(raw),
		CreatedAt:     s.clock.Now(),
	}, nil
}

func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	var before int64
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidPageToken
		}
		before, err = strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil || before <= 0 {
			return auditdomain.ListResponse{}, auditdomain.ErrInvalidPageToken
		}
	}

	limit := pagination.Pagination{PageSize: req.PageSize}.Limit(s.policy.Get().Lists.AdminAudit)
	rows, err := s.repo.List(ctx, s.db, auditdomain.ListFilter{
		Action: req.Action,
		Before: before,
		Limit:  limit + 1,
	})
	if err != nil {
		return auditdomain.ListResponse{}, err
	}

	rows, info, err := pagination.Page(rows, limit, func(row auditdomain.AuditLog) pagination.Cursor {
		return pagination.Cursor{ID: strconv.FormatInt(row.ID, 10)}
	})
	if err != nil {
		return auditdomain.ListResponse{}, err
	}
	if rows == nil {
		rows = []auditdomain.AuditLog{}
	}
	return auditdomain.ListResponse{Rows: rows, PageInfo: info}, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
