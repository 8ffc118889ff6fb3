package server

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// requireAdmin guards the moderation surface with a bearer token
// checked against the configured bcrypt hash. With no hash configured
// the whole surface is off.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AdminTokenHash == "" {
			s.writeError(w, http.StatusNotFound, "not found")
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			s.writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(s.opts.AdminTokenHash), []byte(token)); err != nil {
			s.logger.Warnf("rejected admin request from %s", r.RemoteAddr)
			s.writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
