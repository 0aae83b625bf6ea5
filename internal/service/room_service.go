package service

import (
	"context"
	"errors"
	"fmt"

	"roomchat/internal/domain"
	"roomchat/internal/security"
)

// ErrWrongPassword is returned by Authorize when the room password does not
// match. Reported to the requesting caller only, never broadcast.
var ErrWrongPassword = errors.New("wrong room password")

// RoomService creates rooms and gates access to password-protected ones.
type RoomService struct {
	rooms domain.RoomRepository
	hash  *security.PasswordHasher
}

func NewRoomService(rooms domain.RoomRepository, hash *security.PasswordHasher) *RoomService {
	return &RoomService{rooms: rooms, hash: hash}
}

type RoomCreateInput struct {
	ID        string
	Name      string
	Password  string
	CreatedBy string
}

func (s *RoomService) CreateRoom(ctx context.Context, in RoomCreateInput) (*domain.Room, error) {
	if in.ID == "" || in.CreatedBy == "" {
		return nil, domain.ErrInvalidInput
	}
	name := in.Name
	if name == "" {
		name = in.ID
	}

	var hashed string
	if in.Password != "" {
		h, err := s.hash.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("hash room password: %w", err)
		}
		hashed = h
	}

	room := &domain.Room{
		ID:             in.ID,
		Name:           name,
		HashedPassword: hashed,
		CreatedBy:      in.CreatedBy,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Authorize validates room existence and password. A room created without a
// password accepts any candidate. Pure read; safe to call both as a
// pre-flight check and again at the actual join.
func (s *RoomService) Authorize(ctx context.Context, roomID, password string) error {
	room, err := s.rooms.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room.HashedPassword == "" {
		return nil
	}
	if err := s.hash.Verify(password, room.HashedPassword); err != nil {
		return ErrWrongPassword
	}
	return nil
}

func (s *RoomService) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	return s.rooms.List(ctx)
}
