package httpserver

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"roomchat/internal/config"
	"roomchat/internal/service"
)

// UploadRoutes returns a sub-router mounted at /api/uploads.
// POST stores the uploaded bytes under cfg.UploadDir and records the opaque
// reference as a file message in the target room; GET serves stored files.
func UploadRoutes(cfg *config.Config, coordinator *service.Coordinator) chi.Router {
	r := chi.NewRouter()

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		account := CurrentAccount(r)
		if account == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		if err := r.ParseMultipartForm(50 << 20); err != nil { // 50MB limit
			http.Error(w, "failed to parse multipart form", http.StatusBadRequest)
			return
		}
		roomID := r.FormValue("room")
		if roomID == "" {
			http.Error(w, "missing room", http.StatusBadRequest)
			return
		}
		password := r.FormValue("password")
		_, hasPassword := r.MultipartForm.Value["password"]

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		defer file.Close()

		ext := filepath.Ext(header.Filename)
		if ext == "" {
			http.Error(w, "file must have an extension", http.StatusBadRequest)
			return
		}

		filename := strconv.FormatInt(time.Now().UnixNano(), 10) + ext
		destPath := filepath.Join(cfg.UploadDir, filename)

		out, err := os.Create(destPath)
		if err != nil {
			http.Error(w, "could not create file", http.StatusInternalServerError)
			return
		}
		defer out.Close()

		if _, err := io.Copy(out, file); err != nil {
			http.Error(w, "could not save file", http.StatusInternalServerError)
			return
		}

		msg, err := coordinator.UploadReference(r.Context(), service.UploadInput{
			RoomID:      roomID,
			Sender:      account.Username,
			FileRef:     filename,
			Password:    password,
			HasPassword: hasPassword,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, msg)
	})

	// Simple file serving endpoint: /api/uploads/{filename}
	r.Get("/{filename}", func(w http.ResponseWriter, r *http.Request) {
		filename := chi.URLParam(r, "filename")
		if filename == "" {
			http.Error(w, "missing filename", http.StatusBadRequest)
			return
		}
		// Prevent path traversal by rejecting anything with separators.
		if filepath.Base(filename) != filename {
			http.Error(w, "invalid filename", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.UploadDir, filename))
	})

	return r
}
