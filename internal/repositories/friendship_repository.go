package repositories

import (
	"context"
	"fmt"

	"github.com/anonto42/gatherly/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FriendshipRepository persists friend edges. Each friendship is stored as
// two directed rows so "friends of X" is a single indexed lookup.
type FriendshipRepository interface {
	InsertEdge(ctx context.Context, a, b uint) error
	DeleteEdge(ctx context.Context, a, b uint) error
	ListEdges(ctx context.Context) ([]models.FriendEdge, error)
	GetUserFriends(ctx context.Context, userID uint) ([]models.User, error)
}

// PostgresFriendshipRepository implements FriendshipRepository with GORM
type PostgresFriendshipRepository struct {
	db *gorm.DB
}

// NewPostgresFriendshipRepository creates a new PostgresFriendshipRepository
func NewPostgresFriendshipRepository(db *gorm.DB) *PostgresFriendshipRepository {
	return &PostgresFriendshipRepository{db: db}
}

// InsertEdge stores both directions. Existing rows are left alone.
func (r *PostgresFriendshipRepository) InsertEdge(ctx context.Context, a, b uint) error {
	if err := insertEdge(r.db.WithContext(ctx), a, b); err != nil {
		return fmt.Errorf("insert friend edge: %w", err)
	}
	return nil
}

// DeleteEdge removes both directions. Missing rows are not an error.
func (r *PostgresFriendshipRepository) DeleteEdge(ctx context.Context, a, b uint) error {
	err := r.db.WithContext(ctx).
		Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).
		Delete(&models.FriendEdge{}).Error
	if err != nil {
		return fmt.Errorf("delete friend edge: %w", err)
	}
	return nil
}

// ListEdges returns every stored row.
func (r *PostgresFriendshipRepository) ListEdges(ctx context.Context) ([]models.FriendEdge, error) {
	var edges []models.FriendEdge
	if err := r.db.WithContext(ctx).Order("user_id, friend_id").Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("list friend edges: %w", err)
	}
	return edges, nil
}

// GetUserFriends retrieves the user records of userID's friends
func (r *PostgresFriendshipRepository) GetUserFriends(ctx context.Context, userID uint) ([]models.User, error) {
	var friends []models.User
	sub := r.db.Model(&models.FriendEdge{}).Select("friend_id").Where("user_id = ?", userID)
	if err := r.db.WithContext(ctx).Where("id IN (?)", sub).Order("id").Find(&friends).Error; err != nil {
		return nil, fmt.Errorf("get user friends: %w", err)
	}
	return friends, nil
}

func insertEdge(tx *gorm.DB, a, b uint) error {
	rows := []models.FriendEdge{{UserID: a, FriendID: b}, {UserID: b, FriendID: a}}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}
