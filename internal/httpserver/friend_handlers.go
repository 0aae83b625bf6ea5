package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"roomchat/internal/service"
)

type friendRequestCreate struct {
	Receiver string `json:"receiver"`
}

type friendRequestRespond struct {
	Action string `json:"action"` // "accept" | "reject"
}

func handleSendFriendRequest(friendSvc *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account := CurrentAccount(r)
		if account == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req friendRequestCreate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		fr, err := friendSvc.SendRequest(r.Context(), account.Username, req.Receiver)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, fr)
	}
}

func handleListPendingRequests(friendSvc *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account := CurrentAccount(r)
		if account == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		reqs, err := friendSvc.PendingFor(r.Context(), account.Username)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, reqs)
	}
}

func handleRespondFriendRequest(friendSvc *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := chi.URLParam(r, "requestID")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request id"})
			return
		}
		var req friendRequestRespond
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		fr, err := friendSvc.Respond(r.Context(), id, req.Action)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fr)
	}
}

func handleListFriends(friendSvc *service.FriendService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account := CurrentAccount(r)
		if account == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		friends, err := friendSvc.Friends(r.Context(), account.Username)
		if err != nil {
			writeError(w, err)
			return
		}
		if friends == nil {
			friends = []string{}
		}
		writeJSON(w, http.StatusOK, friends)
	}
}
