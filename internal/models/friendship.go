package models

import "time"

// FriendEdge is one direction of a symmetric friendship. The graph always
// stores both directions; NewFriendEdge gives the canonical unordered form.
type FriendEdge struct {
	UserID    uint      `json:"user_id" gorm:"primaryKey;autoIncrement:false"`
	FriendID  uint      `json:"friend_id" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (FriendEdge) TableName() string {
	return "friend_edges"
}

// NewFriendEdge returns the pair ordered so that UserID < FriendID
func NewFriendEdge(a, b uint) FriendEdge {
	if a > b {
		a, b = b, a
	}
	return FriendEdge{UserID: a, FriendID: b}
}

// SendFriendRequestInput defines the request body for sending a friend request
type SendFriendRequestInput struct {
	RecipientID uint `json:"recipient_id" validate:"required"`
}

// ResolveFriendRequestInput defines the request body for accepting/rejecting a friend request
type ResolveFriendRequestInput struct {
	Outcome Outcome `json:"outcome" validate:"required,oneof=accept reject"`
}
