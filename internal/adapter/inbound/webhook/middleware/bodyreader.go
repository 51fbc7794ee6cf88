package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/jonny/insight-bot/pkg/apierror"
)

const maxBodyBytes = 10 << 20 // 10 MB

// rawBodyKey is used to store the raw request body in context.
type rawBodyKey struct{}

// BodyReader reads and buffers the request body so it can be accessed multiple
// times (e.g. for signature validation and then form parsing). The raw bytes
// are available through RawBody.
func BodyReader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			apierror.Write(w, apierror.BadRequest("failed to read request body"))
			return
		}
		r.Body.Close()
		if len(body) > maxBodyBytes {
			apierror.Write(w, apierror.New(http.StatusRequestEntityTooLarge, "request body too large"))
			return
		}

		// Restore body so downstream handlers can read it again
		r.Body = io.NopCloser(bytes.NewReader(body))

		ctx := context.WithValue(r.Context(), rawBodyKey{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RawBody returns the body buffered by BodyReader.
func RawBody(ctx context.Context) ([]byte, bool) {
	body, ok := ctx.Value(rawBodyKey{}).([]byte)
	return body, ok
}
