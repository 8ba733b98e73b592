package service

import (
	"context"
	"errors"
	"time"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/cache"
	directorydomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/directory/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Profile-to-user mappings never change once a profile exists, so a
// short TTL is purely a memory bound.
const userIDCacheTTL = 10 * time.Minute

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	clientUsers     cache.Cache[snowflake.ID, snowflake.ID]
	influencerUsers cache.Cache[snowflake.ID, snowflake.ID]
}

func NewService(p Params) directorydomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("directory.service"),
		clientUsers:     cache.NewTTLCache[snowflake.ID, snowflake.ID](userIDCacheTTL),
		influencerUsers: cache.NewTTLCache[snowflake.ID, snowflake.ID](userIDCacheTTL),
	}
}

func (s *Service) ClientByUserID(ctx context.Context, userID snowflake.ID) (*directorydomain.Client, error) {
	if userID == 0 {
		return nil, directorydomain.ErrInvalidUser
	}
	var client directorydomain.Client
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, directorydomain.ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (s *Service) InfluencerByUserID(ctx context.Context, userID snowflake.ID) (*directorydomain.Influencer, error) {
	if userID == 0 {
		return nil, directorydomain.ErrInvalidUser
	}
	var influencer directorydomain.Influencer
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&influencer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, directorydomain.ErrInfluencerNotFound
		}
		return nil, err
	}
	return &influencer, nil
}

func (s *Service) UserIDByClientID(ctx context.Context, clientID snowflake.ID) (snowflake.ID, error) {
	if clientID == 0 {
		return 0, directorydomain.ErrClientNotFound
	}
	if userID, ok := s.clientUsers.Get(clientID); ok {
		return userID, nil
	}

	var client directorydomain.Client
	err := s.db.WithContext(ctx).Select("user_id").Where("id = ?", clientID).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, directorydomain.ErrClientNotFound
		}
		return 0, err
	}
	s.clientUsers.Set(clientID, client.UserID)
	return client.UserID, nil
}

func (s *Service) UserIDByInfluencerID(ctx context.Context, influencerID snowflake.ID) (snowflake.ID, error) {
	if influencerID == 0 {
		return 0, directorydomain.ErrInfluencerNotFound
	}
	if userID, ok := s.influencerUsers.Get(influencerID); ok {
		return userID, nil
	}

	var influencer directorydomain.Influencer
	err := s.db.WithContext(ctx).Select("user_id").Where("id = ?", influencerID).First(&influencer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, directorydomain.ErrInfluencerNotFound
		}
		return 0, err
	}
	s.influencerUsers.Set(influencerID, influencer.UserID)
	return influencer.UserID, nil
}

func (s *Service) ProjectByID(ctx context.Context, projectID snowflake.ID) (*directorydomain.Project, error) {
	if projectID == 0 {
		return nil, directorydomain.ErrProjectNotFound
	}
	var project directorydomain.Project
	err := s.db.WithContext(ctx).Where("id = ?", projectID).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, directorydomain.ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}
