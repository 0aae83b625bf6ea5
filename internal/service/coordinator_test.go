package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"roomchat/internal/domain"
	"roomchat/internal/presence"
	"roomchat/internal/security"
	"roomchat/internal/service"
)

// recordingBroadcaster captures every fan-out the coordinator performs, in
// order, so tests can assert on recipients and event shapes.
type recordingBroadcaster struct {
	mu    sync.Mutex
	sends []broadcast
}

type broadcast struct {
	sessions []string
	event    any
}

func (b *recordingBroadcaster) SendToSessions(sessionIDs []string, event any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]string, len(sessionIDs))
	copy(cp, sessionIDs)
	b.sends = append(b.sends, broadcast{sessions: cp, event: event})
}

func (b *recordingBroadcaster) all() []broadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcast(nil), b.sends...)
}

func (b *recordingBroadcaster) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sends = nil
}

// fakeMessageRepo assigns ascending ids on append and replays in id order.
type fakeMessageRepo struct {
	nextID   int64
	messages []*domain.Message
	listErr  error
}

func (f *fakeMessageRepo) Append(ctx context.Context, m *domain.Message) error {
	f.nextID++
	m.ID = f.nextID
	m.CreatedAt = time.Now().UTC()
	cp := *m
	f.messages = append(f.messages, &cp)
	return nil
}

func (f *fakeMessageRepo) ListForRoom(ctx context.Context, roomID string) ([]*domain.Message, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var res []*domain.Message
	for _, m := range f.messages {
		if m.RoomID == roomID {
			cp := *m
			res = append(res, &cp)
		}
	}
	return res, nil
}

type coordinatorFixture struct {
	coord    *service.Coordinator
	registry *presence.Registry
	bc       *recordingBroadcaster
	messages *fakeMessageRepo
}

func newCoordinatorFixture(t *testing.T, rooms ...*domain.Room) *coordinatorFixture {
	t.Helper()

	hasher := security.NewPasswordHasher(4)
	roomRepo := new(MockRoomRepo)
	for _, r := range rooms {
		roomRepo.On("GetByID", mock.Anything, r.ID).Return(r, nil)
	}
	roomRepo.On("GetByID", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	accounts := new(MockAccountRepo)
	accounts.On("SetOnline", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	bc := &recordingBroadcaster{}
	messages := &fakeMessageRepo{}
	registry := presence.NewRegistry(accounts)
	coord := service.NewCoordinator(service.NewRoomService(roomRepo, hasher), registry, messages, bc)

	return &coordinatorFixture{coord: coord, registry: registry, bc: bc, messages: messages}
}

func protectedRoom(t *testing.T, id, password string) *domain.Room {
	t.Helper()
	hashed, err := security.NewPasswordHasher(4).Hash(password)
	assert.NoError(t, err)
	return &domain.Room{ID: id, Name: id, HashedPassword: hashed}
}

func TestJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("WrongPasswordLeavesNoTrace", func(t *testing.T) {
		fx := newCoordinatorFixture(t, protectedRoom(t, "lobby", "secret"))

		err := fx.coord.Join(ctx, service.JoinInput{
			RoomID: "lobby", SessionID: "s-bob", Username: "bob", Password: "wrong",
		})
		assert.ErrorIs(t, err, service.ErrWrongPassword)
		assert.Empty(t, fx.registry.OnlineUsernames("lobby"))
		assert.Empty(t, fx.bc.all(), "nothing is broadcast on a failed join")
	})

	t.Run("HistoryLoadFailureLeavesNoTrace", func(t *testing.T) {
		fx := newCoordinatorFixture(t, &domain.Room{ID: "lobby"})
		fx.messages.listErr = errors.New("db down")

		err := fx.coord.Join(ctx, service.JoinInput{
			RoomID: "lobby", SessionID: "s1", Username: "alice",
		})
		assert.Error(t, err)
		assert.False(t, fx.registry.HasSession("lobby", "s1"))
		assert.Empty(t, fx.registry.OnlineUsernames("lobby"))
		assert.Empty(t, fx.bc.all())
	})

	t.Run("UnknownRoom", func(t *testing.T) {
		fx := newCoordinatorFixture(t)

		err := fx.coord.Join(ctx, service.JoinInput{
			RoomID: "ghost", SessionID: "s1", Username: "alice",
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SuccessSequence", func(t *testing.T) {
		fx := newCoordinatorFixture(t, protectedRoom(t, "lobby", "secret"))

		err := fx.coord.Join(ctx, service.JoinInput{
			RoomID: "lobby", SessionID: "s-alice", Username: "alice", Password: "secret",
		})
		assert.NoError(t, err)

		sends := fx.bc.all()
		assert.Len(t, sends, 3)

		joined, ok := sends[0].event.(service.MessageEvent)
		assert.True(t, ok)
		assert.Equal(t, "System", joined.Sender)
		assert.Equal(t, "alice joined the chat", joined.Text)
		assert.Zero(t, joined.ID, "system notices carry no persisted id")

		status, ok := sends[1].event.(service.UserStatusEvent)
		assert.True(t, ok)
		assert.Equal(t, []string{"alice"}, status.OnlineUsers)

		history, ok := sends[2].event.(service.ChatHistoryEvent)
		assert.True(t, ok)
		assert.Empty(t, history.Messages)
		assert.Equal(t, []string{"s-alice"}, sends[2].sessions, "history goes to the joiner only")
	})

	t.Run("LateJoinerGetsHistoryNotSystemNotices", func(t *testing.T) {
		fx := newCoordinatorFixture(t, protectedRoom(t, "lobby", "secret"))

		assert.NoError(t, fx.coord.Join(ctx, service.JoinInput{
			RoomID: "lobby", SessionID: "s-alice", Username: "alice", Password: "secret",
		}))
		_, err := fx.coord.Send(ctx, service.SendInput{
			RoomID: "lobby", SessionID: "s-alice", Sender: "alice", Body: "hi", Kind: domain.MessageText,
		})
		assert.NoError(t, err)

		fx.bc.reset()
		assert.NoError(t, fx.coord.Join(ctx, service.JoinInput{
			RoomID: "lobby", SessionID: "s-bob", Username: "bob", Password: "secret",
		}))

		sends := fx.bc.all()
		assert.Len(t, sends, 3)

		status := sends[1].event.(service.UserStatusEvent)
		assert.Equal(t, []string{"alice", "bob"}, status.OnlineUsers)

		history := sends[2].event.(service.ChatHistoryEvent)
		assert.Equal(t, []string{"s-bob"}, sends[2].sessions)
		assert.Len(t, history.Messages, 1)
		assert.Equal(t, int64(1), history.Messages[0].ID)
		assert.Equal(t, "hi", history.Messages[0].Text)
		assert.Equal(t, "alice", history.Messages[0].Sender)
	})
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("WithoutJoin", func(t *testing.T) {
		fx := newCoordinatorFixture(t, &domain.Room{ID: "open"})

		_, err := fx.coord.Send(ctx, service.SendInput{
			RoomID: "open", SessionID: "s-ghost", Sender: "ghost", Body: "hi", Kind: domain.MessageText,
		})
		assert.ErrorIs(t, err, service.ErrNotJoined)
		assert.Empty(t, fx.messages.messages)
	})

	t.Run("PersistsAndBroadcastsInOrder", func(t *testing.T) {
		fx := newCoordinatorFixture(t, &domain.Room{ID: "open"})

		assert.NoError(t, fx.coord.Join(ctx, service.JoinInput{RoomID: "open", SessionID: "s1", Username: "alice"}))
		assert.NoError(t, fx.coord.Join(ctx, service.JoinInput{RoomID: "open", SessionID: "s2", Username: "bob"}))
		fx.bc.reset()

		first, err := fx.coord.Send(ctx, service.SendInput{
			RoomID: "open", SessionID: "s1", Sender: "alice", Body: "one", Kind: domain.MessageText,
		})
		assert.NoError(t, err)
		second, err := fx.coord.Send(ctx, service.SendInput{
			RoomID: "open", SessionID: "s2", Sender: "bob", Body: "two", Kind: domain.MessageText,
		})
		assert.NoError(t, err)

		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)

		sends := fx.bc.all()
		assert.Len(t, sends, 2)
		assert.ElementsMatch(t, []string{"s1", "s2"}, sends[0].sessions, "sender receives its own message too")
		assert.Equal(t, "one", sends[0].event.(service.MessageEvent).Text)
		assert.Equal(t, "two", sends[1].event.(service.MessageEvent).Text)
	})
}

func TestUploadReference(t *testing.T) {
	ctx := context.Background()

	t.Run("BroadcastsFileKind", func(t *testing.T) {
		fx := newCoordinatorFixture(t, &domain.Room{ID: "open"})
		assert.NoError(t, fx.coord.Join(ctx, service.JoinInput{RoomID: "open", SessionID: "s1", Username: "alice"}))
		fx.bc.reset()

		msg, err := fx.coord.UploadReference(ctx, service.UploadInput{
			RoomID: "open", Sender: "alice", FileRef: "1700000000_report.pdf",
		})
		assert.NoError(t, err)
		assert.Equal(t, domain.MessageFile, msg.Kind)

		sends := fx.bc.all()
		assert.Len(t, sends, 1)
		assert.Equal(t, string(domain.MessageFile), sends[0].event.(service.MessageEvent).Kind)
	})

	t.Run("RechecksSuppliedPassword", func(t *testing.T) {
		fx := newCoordinatorFixture(t, protectedRoom(t, "lobby", "secret"))

		_, err := fx.coord.UploadReference(ctx, service.UploadInput{
			RoomID: "lobby", Sender: "alice", FileRef: "f.png", Password: "wrong", HasPassword: true,
		})
		assert.ErrorIs(t, err, service.ErrWrongPassword)
		assert.Empty(t, fx.messages.messages)
	})
}

func TestTyping(t *testing.T) {
	ctx := context.Background()
	fx := newCoordinatorFixture(t, &domain.Room{ID: "open"})

	assert.NoError(t, fx.coord.Join(ctx, service.JoinInput{RoomID: "open", SessionID: "s1", Username: "alice"}))
	assert.NoError(t, fx.coord.Join(ctx, service.JoinInput{RoomID: "open", SessionID: "s2", Username: "bob"}))
	fx.bc.reset()

	fx.coord.Typing("open", "s1", "alice")

	sends := fx.bc.all()
	assert.Len(t, sends, 1)
	assert.Equal(t, []string{"s2"}, sends[0].sessions, "sender is excluded")
	assert.Equal(t, "alice", sends[0].event.(service.TypingEvent).Username)

	// Missing fields degrade to a no-op.
	fx.bc.reset()
	fx.coord.Typing("", "s1", "alice")
	fx.coord.Typing("open", "s1", "")
	assert.Empty(t, fx.bc.all())
}

func TestLeave(t *testing.T) {
	ctx := context.Background()

	t.Run("AnnouncesAndUpdatesPresence", func(t *testing.T) {
		fx := newCoordinatorFixture(t, &domain.Room{ID: "open"})

		assert.NoError(t, fx.coord.Join(ctx, service.JoinInput{RoomID: "open", SessionID: "s1", Username: "alice"}))
		assert.NoError(t, fx.coord.Join(ctx, service.JoinInput{RoomID: "open", SessionID: "s2", Username: "bob"}))
		fx.bc.reset()

		assert.NoError(t, fx.coord.Leave(ctx, "open", "s2", "bob"))

		sends := fx.bc.all()
		assert.Len(t, sends, 2)
		assert.Equal(t, []string{"s1"}, sends[0].sessions)
		assert.Equal(t, "bob left the chat", sends[0].event.(service.MessageEvent).Text)
		assert.Equal(t, []string{"alice"}, sends[1].event.(service.UserStatusEvent).OnlineUsers)
	})

	t.Run("MissingFieldsAreSilent", func(t *testing.T) {
		fx := newCoordinatorFixture(t)

		assert.NoError(t, fx.coord.Leave(ctx, "", "s1", "alice"))
		assert.NoError(t, fx.coord.Leave(ctx, "open", "s1", ""))
		assert.Empty(t, fx.bc.all())
	})
}
