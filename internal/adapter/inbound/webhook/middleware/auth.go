package middleware

import (
	"net/http"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/insight-bot/pkg/apierror"
)

// SlackSignature returns middleware that verifies the X-Slack-Signature
// header against the signing secret. It relies on BodyReader having buffered
// the raw body. Requests older than five minutes are rejected as replays.
func SlackSignature(signingSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, ok := RawBody(r.Context())
			if !ok {
				apierror.Write(w, apierror.Internal("request body not available for signature verification"))
				return
			}

			sv, err := slackapi.NewSecretsVerifier(r.Header, signingSecret)
			if err != nil {
				apierror.Write(w, apierror.Unauthorized("missing or stale signature headers"))
				return
			}
			if _, err := sv.Write(body); err != nil {
				apierror.Write(w, apierror.Internal("hashing request body"))
				return
			}
			if err := sv.Ensure(); err != nil {
				apierror.Write(w, apierror.Unauthorized("invalid slack signature"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
