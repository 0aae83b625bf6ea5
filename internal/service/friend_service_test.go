package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"roomchat/internal/domain"
	"roomchat/internal/service"
)

// fakeFriendRepo is an in-memory FriendRepository, enough state to drive the
// request lifecycle end to end.
type fakeFriendRepo struct {
	nextID      int64
	requests    map[int64]*domain.FriendRequest
	friendships [][2]string
}

func newFakeFriendRepo() *fakeFriendRepo {
	return &fakeFriendRepo{requests: make(map[int64]*domain.FriendRequest)}
}

func (f *fakeFriendRepo) CreateRequest(ctx context.Context, req *domain.FriendRequest) error {
	f.nextID++
	req.ID = f.nextID
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeFriendRepo) GetRequestByID(ctx context.Context, id int64) (*domain.FriendRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (f *fakeFriendRepo) PendingRequestExists(ctx context.Context, sender, receiver string) (bool, error) {
	for _, req := range f.requests {
		if req.Sender == sender && req.Receiver == receiver && req.Status == domain.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFriendRepo) ListPendingForReceiver(ctx context.Context, receiver string) ([]*domain.FriendRequest, error) {
	var res []*domain.FriendRequest
	for id := int64(1); id <= f.nextID; id++ {
		req, ok := f.requests[id]
		if ok && req.Receiver == receiver && req.Status == domain.RequestPending {
			cp := *req
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (f *fakeFriendRepo) SetRequestStatus(ctx context.Context, id int64, status domain.FriendRequestStatus) error {
	req, ok := f.requests[id]
	if !ok {
		return domain.ErrNotFound
	}
	req.Status = status
	return nil
}

// CreateFriendship normalizes the pair to lexicographic order, matching the
// store implementations, so either orientation of an existing edge conflicts.
func (f *fakeFriendRepo) CreateFriendship(ctx context.Context, userA, userB string) error {
	if userB < userA {
		userA, userB = userB, userA
	}
	for _, p := range f.friendships {
		if p[0] == userA && p[1] == userB {
			return domain.ErrConflict
		}
	}
	f.friendships = append(f.friendships, [2]string{userA, userB})
	return nil
}

func (f *fakeFriendRepo) FriendshipExists(ctx context.Context, userA, userB string) (bool, error) {
	for _, p := range f.friendships {
		if (p[0] == userA && p[1] == userB) || (p[0] == userB && p[1] == userA) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeFriendRepo) ListFriends(ctx context.Context, username string) ([]string, error) {
	var res []string
	for _, p := range f.friendships {
		switch username {
		case p[0]:
			res = append(res, p[1])
		case p[1]:
			res = append(res, p[0])
		}
	}
	return res, nil
}

func newFriendService(repo *fakeFriendRepo) *service.FriendService {
	accounts := new(MockAccountRepo)
	accounts.On("GetByUsername", mock.Anything, mock.Anything).Return(&domain.Account{}, nil)
	return service.NewFriendService(repo, accounts)
}

func TestSendRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("CreatesPending", func(t *testing.T) {
		svc := newFriendService(newFakeFriendRepo())

		req, err := svc.SendRequest(ctx, "alice", "bob")
		assert.NoError(t, err)
		assert.Equal(t, domain.RequestPending, req.Status)
		assert.NotZero(t, req.ID)
	})

	t.Run("DuplicatePending", func(t *testing.T) {
		svc := newFriendService(newFakeFriendRepo())

		_, err := svc.SendRequest(ctx, "alice", "bob")
		assert.NoError(t, err)

		_, err = svc.SendRequest(ctx, "alice", "bob")
		assert.ErrorIs(t, err, service.ErrRequestAlreadySent)
	})

	t.Run("ReversePendingIsNotADuplicate", func(t *testing.T) {
		// Pins the ordered-pair semantics: bob->alice pending does not block
		// alice->bob.
		svc := newFriendService(newFakeFriendRepo())

		_, err := svc.SendRequest(ctx, "bob", "alice")
		assert.NoError(t, err)

		_, err = svc.SendRequest(ctx, "alice", "bob")
		assert.NoError(t, err)
	})

	t.Run("SelfRequest", func(t *testing.T) {
		svc := newFriendService(newFakeFriendRepo())

		_, err := svc.SendRequest(ctx, "alice", "alice")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("UnknownReceiver", func(t *testing.T) {
		accounts := new(MockAccountRepo)
		accounts.On("GetByUsername", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)
		svc := service.NewFriendService(newFakeFriendRepo(), accounts)

		_, err := svc.SendRequest(ctx, "alice", "ghost")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestRespond(t *testing.T) {
	ctx := context.Background()

	t.Run("AcceptCreatesFriendship", func(t *testing.T) {
		repo := newFakeFriendRepo()
		svc := newFriendService(repo)

		req, err := svc.SendRequest(ctx, "alice", "bob")
		assert.NoError(t, err)

		pending, err := svc.PendingFor(ctx, "bob")
		assert.NoError(t, err)
		assert.Len(t, pending, 1)
		assert.Equal(t, "alice", pending[0].Sender)

		resolved, err := svc.Respond(ctx, req.ID, "accept")
		assert.NoError(t, err)
		assert.Equal(t, domain.RequestAccepted, resolved.Status)

		aliceFriends, _ := svc.Friends(ctx, "alice")
		bobFriends, _ := svc.Friends(ctx, "bob")
		assert.Contains(t, aliceFriends, "bob")
		assert.Contains(t, bobFriends, "alice")

		// Friends now; a new request in either direction is refused.
		_, err = svc.SendRequest(ctx, "alice", "bob")
		assert.ErrorIs(t, err, service.ErrAlreadyFriends)
		_, err = svc.SendRequest(ctx, "bob", "alice")
		assert.ErrorIs(t, err, service.ErrAlreadyFriends)
	})

	t.Run("RejectLeavesNoEdge", func(t *testing.T) {
		svc := newFriendService(newFakeFriendRepo())

		req, err := svc.SendRequest(ctx, "alice", "bob")
		assert.NoError(t, err)

		resolved, err := svc.Respond(ctx, req.ID, "reject")
		assert.NoError(t, err)
		assert.Equal(t, domain.RequestRejected, resolved.Status)

		friends, _ := svc.Friends(ctx, "alice")
		assert.Empty(t, friends)
	})

	t.Run("ResolvedRequestIsTerminal", func(t *testing.T) {
		svc := newFriendService(newFakeFriendRepo())

		req, err := svc.SendRequest(ctx, "alice", "bob")
		assert.NoError(t, err)

		_, err = svc.Respond(ctx, req.ID, "accept")
		assert.NoError(t, err)

		_, err = svc.Respond(ctx, req.ID, "accept")
		assert.ErrorIs(t, err, domain.ErrConflict)
		_, err = svc.Respond(ctx, req.ID, "reject")
		assert.ErrorIs(t, err, domain.ErrConflict)

		// Still exactly one edge.
		friends, _ := svc.Friends(ctx, "alice")
		assert.Equal(t, []string{"bob"}, friends)
	})

	t.Run("MutualPendingAcceptsBoth", func(t *testing.T) {
		svc := newFriendService(newFakeFriendRepo())

		reqAB, err := svc.SendRequest(ctx, "alice", "bob")
		assert.NoError(t, err)
		reqBA, err := svc.SendRequest(ctx, "bob", "alice")
		assert.NoError(t, err)

		_, err = svc.Respond(ctx, reqAB.ID, "accept")
		assert.NoError(t, err)
		// Accepting the mirror request tolerates the existing edge.
		_, err = svc.Respond(ctx, reqBA.ID, "accept")
		assert.NoError(t, err)

		friends, _ := svc.Friends(ctx, "alice")
		assert.Equal(t, []string{"bob"}, friends)
		friends, _ = svc.Friends(ctx, "bob")
		assert.Equal(t, []string{"alice"}, friends)
	})

	t.Run("UnknownRequest", func(t *testing.T) {
		svc := newFriendService(newFakeFriendRepo())

		_, err := svc.Respond(ctx, 42, "accept")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("UnknownAction", func(t *testing.T) {
		svc := newFriendService(newFakeFriendRepo())

		req, err := svc.SendRequest(ctx, "alice", "bob")
		assert.NoError(t, err)

		_, err = svc.Respond(ctx, req.ID, "maybe")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
