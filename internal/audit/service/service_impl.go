package service

import (
	"context"
	"strings"
	"time"

	auditdomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/audit/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
	}
}

func (s *Service) Record(ctx context.Context, entry auditdomain.Entry) error {
	action := strings.TrimSpace(entry.Action)
	if action == "" {
		return auditdomain.ErrMissingAction
	}

	record := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		Action:     action,
		TargetType: strings.TrimSpace(entry.TargetType),
		CreatedAt:  time.Now().UTC(),
	}
	if entry.ActorID != 0 {
		actor := entry.ActorID
		record.ActorID = &actor
	}
	if target := strings.TrimSpace(entry.TargetID); target != "" {
		record.TargetID = &target
	}
	if entry.Metadata != nil {
		record.Metadata = datatypes.JSONMap(entry.Metadata)
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.log.Error("insert audit log",
			zap.String("action", action),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) RecentByTarget(ctx context.Context, targetType, targetID string, limit int) ([]auditdomain.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var rows []auditdomain.AuditLog
	err := s.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", strings.TrimSpace(targetType), strings.TrimSpace(targetID)).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
