package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"roomchat/internal/domain"
	"roomchat/internal/presence"
)

// ErrNotJoined is returned when a session sends to a room it has not joined.
var ErrNotJoined = errors.New("session has not joined this room")

// Broadcaster delivers an event to a set of sessions. The transport decides
// how; delivery is best-effort and never blocks the coordinator.
type Broadcaster interface {
	SendToSessions(sessionIDs []string, event any)
}

// Coordinator orchestrates join/leave/send/typing handling for rooms. It
// composes room access control, the presence registry, and the message log,
// and computes broadcast fan-out from current presence.
//
// Per-room operations are serialized by a keyed mutex so that persisted
// message order equals broadcast-observed order and the join sequence
// (joined notice, user_status, history unicast) is never interleaved.
// Operations on different rooms proceed in parallel.
type Coordinator struct {
	access   *RoomService
	registry *presence.Registry
	messages domain.MessageRepository
	bc       Broadcaster

	mu    sync.Mutex
	rooms map[string]*sync.Mutex
}

func NewCoordinator(access *RoomService, registry *presence.Registry, messages domain.MessageRepository, bc Broadcaster) *Coordinator {
	return &Coordinator{
		access:   access,
		registry: registry,
		messages: messages,
		bc:       bc,
		rooms:    make(map[string]*sync.Mutex),
	}
}

func (c *Coordinator) roomLock(roomID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.rooms[roomID]
	if !ok {
		l = &sync.Mutex{}
		c.rooms[roomID] = l
	}
	return l
}

type JoinInput struct {
	RoomID    string
	SessionID string
	Username  string
	Password  string
}

// Join admits a session into a room. On success the room observes, in order,
// a system joined notice and a refreshed user_status broadcast; the joiner
// alone then receives the full message log in ascending id order. On failure
// the error goes back to the caller only and presence is untouched.
//
// History is loaded before presence is mutated so a storage failure cannot
// strand a session in the registry; the room lock keeps the snapshot current
// until the unicast, since Send appends under the same lock.
func (c *Coordinator) Join(ctx context.Context, in JoinInput) error {
	if in.RoomID == "" || in.SessionID == "" || in.Username == "" {
		return domain.ErrInvalidInput
	}

	lock := c.roomLock(in.RoomID)
	lock.Lock()
	defer lock.Unlock()

	if err := c.access.Authorize(ctx, in.RoomID, in.Password); err != nil {
		return err
	}

	history, err := c.messages.ListForRoom(ctx, in.RoomID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if err := c.registry.AddSession(ctx, in.RoomID, in.SessionID, in.Username); err != nil {
		return fmt.Errorf("add session: %w", err)
	}

	sessions := c.registry.Sessions(in.RoomID)
	c.bc.SendToSessions(sessions, systemEvent(in.RoomID, in.Username+" joined the chat"))
	c.bc.SendToSessions(sessions, UserStatusEvent{
		Type:        EventUserStatus,
		Room:        in.RoomID,
		OnlineUsers: c.registry.OnlineUsernames(in.RoomID),
	})

	payloads := make([]MessagePayload, 0, len(history))
	for _, m := range history {
		payloads = append(payloads, payloadFor(m))
	}
	c.bc.SendToSessions([]string{in.SessionID}, ChatHistoryEvent{
		Type:     EventChatHistory,
		Room:     in.RoomID,
		Messages: payloads,
	})
	return nil
}

type SendInput struct {
	RoomID    string
	SessionID string
	Sender    string
	Body      string
	Kind      domain.MessageKind
}

// Send persists a message and broadcasts it to the room. The sending session
// must have joined the room first.
func (c *Coordinator) Send(ctx context.Context, in SendInput) (*domain.Message, error) {
	if in.RoomID == "" || in.Sender == "" || in.Body == "" {
		return nil, domain.ErrInvalidInput
	}
	if !c.registry.HasSession(in.RoomID, in.SessionID) {
		return nil, ErrNotJoined
	}

	lock := c.roomLock(in.RoomID)
	lock.Lock()
	defer lock.Unlock()

	msg := &domain.Message{
		RoomID: in.RoomID,
		Sender: in.Sender,
		Body:   in.Body,
		Kind:   in.Kind,
	}
	if err := c.messages.Append(ctx, msg); err != nil {
		return nil, err
	}

	c.bc.SendToSessions(c.registry.Sessions(in.RoomID), newMessageEvent(msg))
	return msg, nil
}

type UploadInput struct {
	RoomID   string
	Sender   string
	FileRef  string
	Password string
	// HasPassword distinguishes "no password supplied" from an empty one;
	// authorization is re-run only when one was supplied.
	HasPassword bool
}

// UploadReference records a stored-file reference as a file-kind message and
// broadcasts it exactly like Send.
func (c *Coordinator) UploadReference(ctx context.Context, in UploadInput) (*domain.Message, error) {
	if in.RoomID == "" || in.Sender == "" || in.FileRef == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.HasPassword {
		if err := c.access.Authorize(ctx, in.RoomID, in.Password); err != nil {
			return nil, err
		}
	}

	lock := c.roomLock(in.RoomID)
	lock.Lock()
	defer lock.Unlock()

	msg := &domain.Message{
		RoomID: in.RoomID,
		Sender: in.Sender,
		Body:   in.FileRef,
		Kind:   domain.MessageFile,
	}
	if err := c.messages.Append(ctx, msg); err != nil {
		return nil, err
	}

	c.bc.SendToSessions(c.registry.Sessions(in.RoomID), newMessageEvent(msg))
	return msg, nil
}

// Typing forwards a typing indicator to every other session in the room.
// Stateless and best-effort; nothing is persisted and lost signals are not
// reported.
func (c *Coordinator) Typing(roomID, sessionID, username string) {
	if roomID == "" || username == "" {
		return
	}
	c.bc.SendToSessions(c.registry.SessionsExcept(roomID, sessionID), TypingEvent{
		Type:     EventTyping,
		Room:     roomID,
		Username: username,
	})
}

// Leave removes a session from a room and announces it. A missing room or
// username degrades to a silent no-op so best-effort teardown never fails.
func (c *Coordinator) Leave(ctx context.Context, roomID, sessionID, username string) error {
	if roomID == "" || username == "" {
		return nil
	}

	lock := c.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	if err := c.registry.RemoveSession(ctx, roomID, sessionID); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}

	sessions := c.registry.Sessions(roomID)
	c.bc.SendToSessions(sessions, systemEvent(roomID, username+" left the chat"))
	c.bc.SendToSessions(sessions, UserStatusEvent{
		Type:        EventUserStatus,
		Room:        roomID,
		OnlineUsers: c.registry.OnlineUsernames(roomID),
	})
	return nil
}
