package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"roomchat/internal/service"
)

type roomCreateRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type roomAuthorizeRequest struct {
	Password string `json:"password"`
}

// roomSummary never exposes the password hash; has_password tells clients
// whether to prompt.
type roomSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	HasPassword bool      `json:"has_password"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func handleCreateRoom(roomSvc *service.RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req roomCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		account := CurrentAccount(r)
		if account == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}

		room, err := roomSvc.CreateRoom(r.Context(), service.RoomCreateInput{
			ID:        req.ID,
			Name:      req.Name,
			Password:  req.Password,
			CreatedBy: account.Username,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, roomSummary{
			ID:          room.ID,
			Name:        room.Name,
			HasPassword: room.HashedPassword != "",
			CreatedBy:   room.CreatedBy,
			CreatedAt:   room.CreatedAt,
		})
	}
}

func handleListRooms(roomSvc *service.RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := roomSvc.ListRooms(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		res := make([]roomSummary, 0, len(rooms))
		for _, room := range rooms {
			res = append(res, roomSummary{
				ID:          room.ID,
				Name:        room.Name,
				HasPassword: room.HashedPassword != "",
				CreatedBy:   room.CreatedBy,
				CreatedAt:   room.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleAuthorizeRoom(roomSvc *service.RoomService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := chi.URLParam(r, "roomID")
		var req roomAuthorizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := roomSvc.Authorize(r.Context(), roomID, req.Password); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
