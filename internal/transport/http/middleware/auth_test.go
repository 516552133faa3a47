package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestAuth(t *testing.T) {
	t.Parallel()

	headers := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("Authorization")
	}))
	defer srv.Close()

	for _, token := range []string{"abc", ""} {
		client := &http.Client{Transport: Chain(nil, Auth(staticToken(token)))}
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Empty(t, req.Header.Get("Authorization"), "caller's request must not be mutated")
	}

	assert.Equal(t, "Bearer abc", <-headers)
	assert.Equal(t, "", <-headers)
}

func TestLogger(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	client := &http.Client{Transport: Chain(nil, Logger(log))}

	resp, err := client.Get(srv.URL + "/messages/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Contains(t, buf.String(), `"status":418`)
	assert.Contains(t, buf.String(), `"path":"/messages/"`)
}
