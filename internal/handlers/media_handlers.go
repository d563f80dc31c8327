package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"inkframe/internal/middleware"
	"inkframe/internal/storage"
	"inkframe/internal/utils"
)

// Uploads are capped to keep a single request from holding a
// connection open indefinitely.
const maxUploadBytes = 10 << 20 // 10 MB

type uploadResponse struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// HandleUpload stores an image under the caller's namespace and
// returns its public URL. The bucket query parameter selects blog or
// comment images.
func (s *Server) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, utils.NewUnauthorizedError("Missing session"))
		return
	}

	bucket := r.URL.Query().Get("bucket")
	if bucket != storage.BlogImageBucket && bucket != storage.CommentImageBucket {
		writeError(w, utils.NewValidationError("Unknown bucket: "+bucket))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, utils.NewValidationError("Missing image file"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, utils.NewValidationError("Only image uploads are accepted"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	path := storage.ObjectPath(userID, header.Filename)
	if err := s.Objects.Upload(ctx, bucket, path, file, contentType); err != nil {
		writeError(w, utils.NewGatewayError(err))
		return
	}

	writeJSON(w, http.StatusCreated, uploadResponse{
		Path: path,
		URL:  s.Objects.PublicURL(bucket, path),
	})
}

// HandleMedia serves stored objects back under /media/{bucket}/{path}.
// Only mounted with the GridFS backend; Cloudinary serves its own URLs.
func (s *Server) HandleMedia(w http.ResponseWriter, r *http.Request) {
	if s.Media == nil {
		http.NotFound(w, r)
		return
	}

	bucket := r.PathValue("bucket")
	if bucket != storage.BlogImageBucket && bucket != storage.CommentImageBucket {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout)
	defer cancel()

	var buf bytes.Buffer
	contentType, err := s.Media.Download(ctx, bucket, r.PathValue("path"), &buf)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Write(buf.Bytes())
}
