package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Logger logs each request at debug level with its status and duration.
// Failed round trips are logged at warn.
func Logger(log zerolog.Logger) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			if err != nil {
				log.Warn().Err(err).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Dur("took", time.Since(start)).
					Msg("http request failed")
				return nil, err
			}
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", resp.StatusCode).
				Dur("took", time.Since(start)).
				Msg("http request")
			return resp, nil
		})
	}
}
