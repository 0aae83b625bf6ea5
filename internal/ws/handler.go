package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"roomchat/internal/security"
	"roomchat/internal/service"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// MakeHandler returns an HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header or Sec-WebSocket-Protocol),
// assigns the connection a session ID, then dispatches events:
//   - join            -> authorize, register presence, announce, replay history
//   - send_message    -> persist & broadcast to the room
//   - typing          -> forward typing indicator to the rest of the room
//   - disconnect_user -> leave the room, announce, refresh presence
//
// All failures are reported to this connection only via an error frame.
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	coordinator *service.Coordinator,
	allowedOrigins []string,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		username, err := tokens.Subject(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sessionID := uuid.NewString()
		hub.Register(sessionID, conn)

		// Rooms this connection has joined; drained on teardown so a dropped
		// socket cannot strand presence entries.
		joined := make(map[string]struct{})
		defer func() {
			hub.Unregister(sessionID)
			for roomID := range joined {
				if err := coordinator.Leave(context.Background(), roomID, sessionID, username); err != nil {
					log.Printf("ws: leave %s for %s: %v", roomID, username, err)
				}
			}
		}()

		ctx := r.Context()
		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			event, _ := payload["type"].(string)
			switch event {

			case "join":
				room, _ := payload["room"].(string)
				password, _ := payload["password"].(string)
				err := coordinator.Join(ctx, service.JoinInput{
					RoomID:    room,
					SessionID: sessionID,
					Username:  username,
					Password:  password,
				})
				if err != nil {
					sendError(hub, sessionID, err.Error())
					continue
				}
				joined[room] = struct{}{}

			case "send_message":
				room, _ := payload["room"].(string)
				text, _ := payload["text"].(string)
				if _, err := coordinator.Send(ctx, service.SendInput{
					RoomID:    room,
					SessionID: sessionID,
					Sender:    username,
					Body:      text,
				}); err != nil {
					sendError(hub, sessionID, err.Error())
					continue
				}

			case "typing":
				room, _ := payload["room"].(string)
				coordinator.Typing(room, sessionID, username)

			case "disconnect_user":
				room, _ := payload["room"].(string)
				if err := coordinator.Leave(ctx, room, sessionID, username); err != nil {
					sendError(hub, sessionID, err.Error())
					continue
				}
				delete(joined, room)

			default:
				log.Printf("ws: unknown event type %q from %s", event, username)
			}
		}
	}
}

func sendError(hub *Hub, sessionID, msg string) {
	hub.SendToSessions([]string{sessionID}, service.NewErrorEvent(msg))
}
