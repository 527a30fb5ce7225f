package handlers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/d4l-data4life/go-mcp-registry/internal/testutils"
	"github.com/d4l-data4life/go-mcp-registry/pkg/server"
)

func doRequest(t *testing.T, srv *server.Server, method, path, token string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	srv.Mux().ServeHTTP(recorder, req)
	return recorder
}

func TestRoutesRequireAuthentication(t *testing.T) {
	srv, _ := testutils.GetTestMockServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/registry"},
		{http.MethodGet, "/api/v1/installs"},
		{http.MethodPost, "/api/v1/execute"},
		{http.MethodGet, "/api/v1/calls"},
	}

	for _, p := range paths {
		t.Run(p.path, func(t *testing.T) {
			recorder := doRequest(t, srv, p.method, p.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, recorder.Code)

			recorder = doRequest(t, srv, p.method, p.path, "not-a-jwt", nil)
			assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		})
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	srv, _ := testutils.GetTestMockServer(t)

	// a token signed with a different secret must not pass
	forged := testutils.TestToken(t, uuid.New())
	recorder := doRequest(t, srv, http.MethodGet, "/api/v1/registry", forged[:len(forged)-2]+"xx", nil)
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}
