package seed

import (
	"context"
	"errors"
	"time"

	"github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/auth/password"
	directorydomain "github.com/HayamiTakanari/influencer-marketing-tool-sub007/internal/directory/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	demoClientEmail     = "client@example.com"
	demoInfluencerEmail = "influencer@example.com"
	demoPassword        = "password"
)

// EnsureDemoData seeds one client, one influencer and a matched project
// so a fresh environment can exercise the billing flow end to end.
// Idempotent: existing rows are left alone.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(9)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clientUser, err := ensureUser(ctx, tx, node, demoClientEmail, "Demo Client", "CLIENT")
		if err != nil {
			return err
		}
		influencerUser, err := ensureUser(ctx, tx, node, demoInfluencerEmail, "Demo Influencer", "INFLUENCER")
		if err != nil {
			return err
		}

		client, err := ensureClient(ctx, tx, node, clientUser.ID)
		if err != nil {
			return err
		}
		if err := ensureInfluencer(ctx, tx, node, influencerUser.ID); err != nil {
			return err
		}
		return ensureProject(ctx, tx, node, client.ID)
	})
}

func ensureUser(ctx context.Context, tx *gorm.DB, node *snowflake.Node, email, name, role string) (*directorydomain.User, error) {
	var user directorydomain.User
	err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(demoPassword)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user = directorydomain.User{
		ID:           node.Generate(),
		Email:        email,
		DisplayName:  name,
		Role:         role,
		PasswordHash: &hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func ensureClient(ctx context.Context, tx *gorm.DB, node *snowflake.Node, userID snowflake.ID) (*directorydomain.Client, error) {
	var client directorydomain.Client
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&client).Error
	if err == nil {
		return &client, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	client = directorydomain.Client{
		ID:          node.Generate(),
		UserID:      userID,
		CompanyName: "Demo Company",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func ensureInfluencer(ctx context.Context, tx *gorm.DB, node *snowflake.Node, userID snowflake.ID) error {
	var influencer directorydomain.Influencer
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&influencer).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	influencer = directorydomain.Influencer{
		ID:          node.Generate(),
		UserID:      userID,
		DisplayName: "Demo Influencer",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return tx.WithContext(ctx).Create(&influencer).Error
}

func ensureProject(ctx context.Context, tx *gorm.DB, node *snowflake.Node, clientID snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).
		Table("projects").
		Where("client_id = ?", clientID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	project := directorydomain.Project{
		ID:        node.Generate(),
		ClientID:  clientID,
		Title:     "Demo Campaign",
		Status:    "ACTIVE",
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.WithContext(ctx).Create(&project).Error
}
