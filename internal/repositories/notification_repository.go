package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/gatherly/backend/internal/apperrors"
	"github.com/anonto42/gatherly/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository persists ledger records and their transitions
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id string) (*models.Notification, error)
	AcceptFriendRequest(ctx context.Context, id, reverseID string, sender, recipient uint, at time.Time) error
	SetStatus(ctx context.Context, id string, status models.NotificationStatus, at time.Time) error
	ListPending(ctx context.Context) ([]models.Notification, error)
}

// PostgresNotificationRepository implements NotificationRepository with GORM
type PostgresNotificationRepository struct {
	db *gorm.DB
}

// NewPostgresNotificationRepository creates a new PostgresNotificationRepository
func NewPostgresNotificationRepository(db *gorm.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

// CreateNotification inserts a new notification
func (r *PostgresNotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// GetNotification retrieves a notification by ID in any status
func (r *PostgresNotificationRepository) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("notification %s not found", id)
		}
		return nil, fmt.Errorf("get notification %s: %w", id, err)
	}
	return &n, nil
}

// AcceptFriendRequest stores the friendship and marks the request, plus
// the reverse request when reverseID is set, as accepted. All of it commits
// in one transaction, and replaying it after a partial failure is safe.
func (r *PostgresNotificationRepository) AcceptFriendRequest(ctx context.Context, id, reverseID string, sender, recipient uint, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertEdge(tx, sender, recipient); err != nil {
			return fmt.Errorf("insert friend edge: %w", err)
		}
		ids := []string{id}
		if reverseID != "" {
			ids = append(ids, reverseID)
		}
		err := tx.Model(&models.Notification{}).
			Where("id IN ? AND status = ?", ids, models.StatusPending).
			Updates(map[string]any{"status": models.StatusAccepted, "resolved_at": at}).Error
		if err != nil {
			return fmt.Errorf("mark requests accepted: %w", err)
		}
		return nil
	})
}

// SetStatus moves a pending notification to a terminal status
func (r *PostgresNotificationRepository) SetStatus(ctx context.Context, id string, status models.NotificationStatus, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]any{"status": status, "resolved_at": at}).Error
	if err != nil {
		return fmt.Errorf("set notification %s %s: %w", id, status, err)
	}
	return nil
}

// ListPending returns every pending notification, oldest first
func (r *PostgresNotificationRepository) ListPending(ctx context.Context) ([]models.Notification, error) {
	var items []models.Notification
	err := r.db.WithContext(ctx).
		Where("status = ?", models.StatusPending).
		Order("created_at, id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	return items, nil
}
