package registry_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// serve starts a registry stub answering with handler.
func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}
