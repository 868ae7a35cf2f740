package models

import "time"

type NotificationType string

const (
	NotificationFriendRequest  NotificationType = "friend_request"
	NotificationEventCancelled NotificationType = "event_cancelled"
)

// NotificationStatus moves from pending to exactly one terminal value.
type NotificationStatus string

const (
	StatusPending   NotificationStatus = "pending"
	StatusAccepted  NotificationStatus = "accepted"
	StatusRejected  NotificationStatus = "rejected"
	StatusDismissed NotificationStatus = "dismissed"
)

// Outcome is the recipient's answer to a friend request.
type Outcome string

const (
	OutcomeAccept Outcome = "accept"
	OutcomeReject Outcome = "reject"
)

// Notification is a ledger record addressed to RecipientID. Friend requests
// carry the proposing user in SenderID; event cancellations carry the event
// id in TargetID.
type Notification struct {
	ID          string             `json:"id" gorm:"primaryKey;size:26"`
	Type        NotificationType   `json:"type" gorm:"size:30;index"`
	SenderID    uint               `json:"sender_id" gorm:"index"`
	RecipientID uint               `json:"recipient_id" gorm:"index"`
	TargetID    string             `json:"target_id,omitempty" gorm:"size:64"`
	Message     string             `json:"message,omitempty"`
	Status      NotificationStatus `json:"status" gorm:"size:20;index;default:'pending'"`
	CreatedAt   time.Time          `json:"created_at" gorm:"index"`
	ResolvedAt  *time.Time         `json:"resolved_at,omitempty"`
}
