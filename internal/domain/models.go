package domain

import "time"

// Account represents a registered chat user.
type Account struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	IsOnline       bool      `db:"is_online" json:"is_online"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	LastSeen       time.Time `db:"last_seen" json:"last_seen"`
}

// Room is a named broadcast domain with an append-only message log.
// A room with an empty HashedPassword requires no password to join.
type Room struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// MessageKind distinguishes plain text from stored-file references.
type MessageKind string

const (
	MessageText MessageKind = "text"
	MessageFile MessageKind = "file"
)

// Message is one entry in a room's log. ID is assigned by the store and is
// strictly increasing; replay order is ascending ID.
type Message struct {
	ID        int64       `db:"id" json:"id"`
	RoomID    string      `db:"room_id" json:"room"`
	Sender    string      `db:"sender" json:"sender"`
	Body      string      `db:"body" json:"text"`
	Kind      MessageKind `db:"kind" json:"kind"`
	CreatedAt time.Time   `db:"created_at" json:"timestamp"`
}

// FriendRequestStatus is the lifecycle state of a friend request.
type FriendRequestStatus string

const (
	RequestPending  FriendRequestStatus = "pending"
	RequestAccepted FriendRequestStatus = "accepted"
	RequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest transitions once from pending to accepted or rejected.
type FriendRequest struct {
	ID        int64               `db:"id" json:"id"`
	Sender    string              `db:"sender" json:"sender"`
	Receiver  string              `db:"receiver" json:"receiver"`
	Status    FriendRequestStatus `db:"status" json:"status"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
}

// Friendship is a symmetric edge between two accounts, created only when a
// friend request is accepted. Storage orientation is not significant.
type Friendship struct {
	ID        int64     `db:"id"`
	UserA     string    `db:"user_a"`
	UserB     string    `db:"user_b"`
	CreatedAt time.Time `db:"created_at"`
}
