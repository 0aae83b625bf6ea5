package service

import (
	"context"
	"errors"
	"fmt"

	"roomchat/internal/domain"
)

// Sentinel errors used by handlers to map to HTTP status codes.
var (
	ErrAlreadyFriends     = errors.New("users are already friends")
	ErrRequestAlreadySent = errors.New("friend request already sent")
)

// FriendService manages the friend-request lifecycle and friendship edges.
type FriendService struct {
	friends  domain.FriendRepository
	accounts domain.AccountRepository
}

func NewFriendService(friends domain.FriendRepository, accounts domain.AccountRepository) *FriendService {
	return &FriendService{friends: friends, accounts: accounts}
}

// SendRequest creates a pending request from sender to receiver.
//
// The duplicate check is ordered-pair-only: a pending request from the
// receiver back to the sender does not block a new request, so mutual
// simultaneous requests each get their own row.
func (s *FriendService) SendRequest(ctx context.Context, sender, receiver string) (*domain.FriendRequest, error) {
	if sender == "" || receiver == "" || sender == receiver {
		return nil, domain.ErrInvalidInput
	}

	if _, err := s.accounts.GetByUsername(ctx, receiver); err != nil {
		return nil, err
	}

	friends, err := s.friends.FriendshipExists(ctx, sender, receiver)
	if err != nil {
		return nil, fmt.Errorf("check friendship: %w", err)
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	pending, err := s.friends.PendingRequestExists(ctx, sender, receiver)
	if err != nil {
		return nil, fmt.Errorf("check pending request: %w", err)
	}
	if pending {
		return nil, ErrRequestAlreadySent
	}

	req := &domain.FriendRequest{
		Sender:   sender,
		Receiver: receiver,
		Status:   domain.RequestPending,
	}
	if err := s.friends.CreateRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// Respond resolves a pending request. Accept creates the friendship edge
// before marking the request accepted. Responding to an already-resolved
// request fails with ErrConflict so a second accept can never insert a
// duplicate edge.
func (s *FriendService) Respond(ctx context.Context, requestID int64, action string) (*domain.FriendRequest, error) {
	req, err := s.friends.GetRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestPending {
		return nil, domain.ErrConflict
	}

	switch action {
	case "accept":
		if err := s.friends.CreateFriendship(ctx, req.Sender, req.Receiver); err != nil && !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		if err := s.friends.SetRequestStatus(ctx, req.ID, domain.RequestAccepted); err != nil {
			return nil, err
		}
		req.Status = domain.RequestAccepted
	case "reject":
		if err := s.friends.SetRequestStatus(ctx, req.ID, domain.RequestRejected); err != nil {
			return nil, err
		}
		req.Status = domain.RequestRejected
	default:
		return nil, domain.ErrInvalidInput
	}
	return req, nil
}

// PendingFor lists pending requests addressed to the given user.
func (s *FriendService) PendingFor(ctx context.Context, username string) ([]*domain.FriendRequest, error) {
	return s.friends.ListPendingForReceiver(ctx, username)
}

// Friends lists the usernames the given user is friends with.
func (s *FriendService) Friends(ctx context.Context, username string) ([]string, error) {
	return s.friends.ListFriends(ctx, username)
}
