package handlers

import (
	"net/http"

	"inkframe/internal/middleware"
)

// Handler assembles the full route table. Registration, login, health
// and media are public; everything else requires a bearer token.
func (s *Server) Handler(cors *middleware.CORSConfig) http.Handler {
	mux := http.NewServeMux()
	authed := middleware.AuthMiddleware(s.Auth)

	protected := func(h http.HandlerFunc) http.Handler {
		return authed(h)
	}

	mux.HandleFunc("POST /auth/register", s.HandleRegister)
	mux.HandleFunc("POST /auth/login", s.HandleLogin)
	mux.Handle("POST /auth/logout", protected(s.HandleLogout))
	mux.Handle("GET /auth/session", protected(s.HandleSession))

	mux.Handle("GET /posts", protected(s.HandleListPosts))
	mux.Handle("POST /posts", protected(s.HandleCreatePost))
	mux.Handle("GET /posts/{id}", protected(s.HandleGetPost))
	mux.Handle("PUT /posts/{id}", protected(s.HandleUpdatePost))
	mux.Handle("DELETE /posts/{id}", protected(s.HandleDeletePost))

	mux.Handle("GET /posts/{id}/comments", protected(s.HandleListComments))
	mux.Handle("POST /posts/{id}/comments", protected(s.HandleCreateComment))
	mux.Handle("PUT /comments/{id}", protected(s.HandleUpdateComment))
	mux.Handle("DELETE /comments/{id}", protected(s.HandleDeleteComment))

	mux.Handle("GET /profiles/{id}", protected(s.HandleGetProfile))
	mux.Handle("DELETE /profiles/{id}", protected(s.HandleDeleteProfile))

	mux.Handle("POST /upload", protected(s.HandleUpload))
	mux.HandleFunc("GET /media/{bucket}/{path...}", s.HandleMedia)

	mux.HandleFunc("GET /health", s.HandleHealth())

	return middleware.RequestLogger(s.Metrics)(middleware.CORSMiddleware(cors)(mux))
}
