package ratelimit

import (
	"fmt"
	"net/http"
)

// RequestSizeLimiter returns middleware that rejects request bodies
// over maxSize bytes. The declared Content-Length is checked up front;
// the body is also wrapped with MaxBytesReader so a lying or chunked
// client is cut off while streaming.
func RequestSizeLimiter(maxSize int64) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxSize {
				http.Error(w, fmt.Sprintf("Request body too large (max %d bytes)", maxSize), http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxSize)
			next(w, r)
		}
	}
}
