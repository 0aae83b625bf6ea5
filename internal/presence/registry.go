package presence

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"roomchat/internal/domain"
)

// Registry tracks which sessions are joined to which rooms. It is the only
// owner of presence state; the account online flag is recomputed and
// persisted under the same lock as the presence mutation, so a join and a
// disconnect racing for one username cannot leave the flag inconsistent
// with the final session set.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string]map[string]string // roomID -> sessionID -> username
	accounts domain.AccountRepository
}

func NewRegistry(accounts domain.AccountRepository) *Registry {
	return &Registry{
		rooms:    make(map[string]map[string]string),
		accounts: accounts,
	}
}

// AddSession registers a session in a room. Adding the same (room, session)
// twice is a no-op, not an error.
func (r *Registry) AddSession(ctx context.Context, roomID, sessionID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.rooms[roomID]
	if sessions == nil {
		sessions = make(map[string]string)
		r.rooms[roomID] = sessions
	}
	if _, ok := sessions[sessionID]; ok {
		return nil
	}
	sessions[sessionID] = username

	// Roll back the membership on failure so the registry never carries a
	// session whose online flag was not persisted.
	if err := r.accounts.SetOnline(ctx, username, true); err != nil {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.rooms, roomID)
		}
		return fmt.Errorf("persist online flag: %w", err)
	}
	return nil
}

// RemoveSession drops a session from a room. Removing an absent entry is a
// no-op so that disconnects racing with joins are tolerated.
func (r *Registry) RemoveSession(ctx context.Context, roomID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	username, ok := sessions[sessionID]
	if !ok {
		return nil
	}
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(r.rooms, roomID)
	}

	if err := r.accounts.SetOnline(ctx, username, r.hasAnySessionLocked(username)); err != nil {
		return fmt.Errorf("persist online flag: %w", err)
	}
	return nil
}

// OnlineUsernames returns the distinct usernames with at least one session in
// the room, sorted for deterministic broadcast payloads.
func (r *Registry) OnlineUsernames(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	for _, username := range r.rooms[roomID] {
		seen[username] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sessions returns the session IDs currently joined to the room.
func (r *Registry) Sessions(roomID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.rooms[roomID]))
	for sid := range r.rooms[roomID] {
		ids = append(ids, sid)
	}
	return ids
}

// SessionsExcept returns the room's sessions minus the given one.
func (r *Registry) SessionsExcept(roomID, exceptSessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for sid := range r.rooms[roomID] {
		if sid != exceptSessionID {
			ids = append(ids, sid)
		}
	}
	return ids
}

// HasSession reports whether a session is currently joined to the room.
func (r *Registry) HasSession(roomID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.rooms[roomID][sessionID]
	return ok
}

func (r *Registry) hasAnySessionLocked(username string) bool {
	for _, sessions := range r.rooms {
		for _, u := range sessions {
			if u == username {
				return true
			}
		}
	}
	return false
}
