package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seenID string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = r.Header.Get(RequestIDHeader)
		w.WriteHeader(http.StatusOK)
	})

	middleware := RequestIDMiddleware()
	srv := httptest.NewServer(middleware(h))
	defer srv.Close()

	t.Run("assigns id", func(t *testing.T) {
		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		id := resp.Header.Get(RequestIDHeader)
		require.NotEmpty(t, id, "response should carry a request id")
		require.Equal(t, id, seenID, "handler should see the same id")

		_, err = uuid.Parse(id)
		require.NoError(t, err, "generated id should be a valid uuid")
	})

	t.Run("keeps client id", func(t *testing.T) {
		req, err := http.NewRequest("GET", srv.URL, nil)
		require.NoError(t, err)
		req.Header.Set(RequestIDHeader, "client-chosen-id")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close() // nolint:errcheck

		require.Equal(t, "client-chosen-id", resp.Header.Get(RequestIDHeader))
		require.Equal(t, "client-chosen-id", seenID)
	})
}
