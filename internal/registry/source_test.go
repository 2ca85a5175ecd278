package registry_test

import (
	"net/http"
	"testing"

	"github.com/relplan/relplan/internal/registry"
	"github.com/relplan/relplan/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	singleCrateDocument = `{"crate":{"name":"hub_app"},"versions":[{"num":"0.2.0"},{"num":"0.4.1"}]}`
	searchDocument      = `{"crates":[{"name":"hub_app_extra","versions":[{"vers":"1.0.0"}]},{"name":"hub_app","versions":[{"vers":"0.2.0"}]}]}`
)

func TestSourceRegistryExists(t *testing.T) {
	t.Parallel()

	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		switch r.URL.Path {
		case "/api/v1/crates/hub_app":
			assert.Equal(t, "secret", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(singleCrateDocument))
		case "/krates/by-name/hub_app":
			_, _ = w.Write([]byte(searchDocument))
		case "/broken/hub_app":
			w.WriteHeader(http.StatusBadGateway)
		case "/forbidden/hub_app":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	testCases := []struct {
		name     string
		base     string
		version  string
		expected bool
	}{
		{name: "single crate published", base: "/api/v1/crates/", version: "0.4.1", expected: true},
		{name: "single crate unpublished", base: "/api/v1/crates", version: "0.4.2", expected: false},
		{name: "search result published", base: "/krates/by-name/", version: "0.2.0", expected: true},
		{name: "search result ignores other crates", base: "/krates/by-name/", version: "1.0.0", expected: false},
		{name: "unknown crate", base: "/unknown/", version: "0.1.0", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := registry.NewSourceRegistry(server.URL+tc.base, "secret")

			exists, err := client.Exists(t.Context(), "hub_app", tc.version)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, exists)
		})
	}

	t.Run("server error is retriable", func(t *testing.T) {
		t.Parallel()

		_, err := registry.NewSourceRegistry(server.URL+"/broken/", "").Exists(t.Context(), "hub_app", "0.1.0")
		require.Error(t, err)

		var statusErr registry.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)

		var fatalErr util.FatalError
		assert.NotErrorAs(t, err, &fatalErr)
	})

	t.Run("client error is fatal", func(t *testing.T) {
		t.Parallel()

		_, err := registry.NewSourceRegistry(server.URL+"/forbidden/", "").Exists(t.Context(), "hub_app", "0.1.0")

		var fatalErr util.FatalError
		require.ErrorAs(t, err, &fatalErr)
	})
}
