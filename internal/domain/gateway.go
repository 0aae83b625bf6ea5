package domain

import (
	"context"
)

// AccountRepository defines persistence operations for accounts.
// Absent rows yield ErrNotFound; duplicate usernames yield ErrConflict.
type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	GetByUsername(ctx context.Context, username string) (*Account, error)
	SetOnline(ctx context.Context, username string, online bool) error
}

// RoomRepository defines persistence operations for rooms.
type RoomRepository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context) ([]*Room, error)
}

// MessageRepository is the append-only room log. Append assigns ID and
// CreatedAt; ListForRoom returns messages in ascending ID order.
type MessageRepository interface {
	Append(ctx context.Context, m *Message) error
	ListForRoom(ctx context.Context, roomID string) ([]*Message, error)
}

// FriendRepository backs the friend-request lifecycle and friendship edges.
// CreateFriendship treats the pair as unordered: inserting an edge that
// already exists in either orientation yields ErrConflict.
type FriendRepository interface {
	CreateRequest(ctx context.Context, req *FriendRequest) error
	GetRequestByID(ctx context.Context, id int64) (*FriendRequest, error)
	PendingRequestExists(ctx context.Context, sender, receiver string) (bool, error)
	ListPendingForReceiver(ctx context.Context, receiver string) ([]*FriendRequest, error)
	SetRequestStatus(ctx context.Context, id int64, status FriendRequestStatus) error

	CreateFriendship(ctx context.Context, userA, userB string) error
	FriendshipExists(ctx context.Context, userA, userB string) (bool, error)
	ListFriends(ctx context.Context, username string) ([]string, error)
}
