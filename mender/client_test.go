package mender

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "test-token-1234567890", zerolog.Nop())
	require.NoError(t, err)
	return client, server
}

func TestNewClient(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name      string
		serverURL string
		token     string
		wantErr   bool
		errMsg    string
	}{
		{
			name:      "valid config",
			serverURL: "https://hosted.mender.io",
			token:     "test-token",
			wantErr:   false,
		},
		{
			name:      "missing URL",
			serverURL: "",
			token:     "test-token",
			wantErr:   true,
			errMsg:    "URL is required",
		},
		{
			name:      "missing token",
			serverURL: "https://hosted.mender.io",
			token:     "",
			wantErr:   true,
			errMsg:    "token is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.serverURL, tt.token, logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}

	t.Run("trailing slash trimmed", func(t *testing.T) {
		client, err := NewClient("https://hosted.mender.io/", "test-token", logger)
		require.NoError(t, err)
		assert.Equal(t, "https://hosted.mender.io", client.serverURL)
	})
}

func TestClientOptions(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("with timeout", func(t *testing.T) {
		client, err := NewClient("https://hosted.mender.io", "test-token", logger, WithTimeout(5*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	})

	t.Run("with custom http client", func(t *testing.T) {
		custom := &http.Client{Timeout: 10 * time.Second}
		client, err := NewClient("https://hosted.mender.io", "test-token", logger, WithHTTPClient(custom))
		require.NoError(t, err)
		assert.Equal(t, custom, client.httpClient)
	})

	t.Run("with deployment log paths", func(t *testing.T) {
		client, err := NewClient("https://hosted.mender.io", "test-token", logger,
			WithDeploymentLogPaths("/v2/%s/%s", "/v1/%s/%s"))
		require.NoError(t, err)
		assert.Equal(t, "/v2/%s/%s", client.logPathV2)
		assert.Equal(t, "/v1/%s/%s", client.logPathV1)
	})

	t.Run("empty log path overrides keep defaults", func(t *testing.T) {
		client, err := NewClient("https://hosted.mender.io", "test-token", logger,
			WithDeploymentLogPaths("", ""))
		require.NoError(t, err)
		assert.Equal(t, deploymentLogPathV2, client.logPathV2)
		assert.Equal(t, deploymentLogPathV1, client.logPathV1)
	})
}

func TestListDevices(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, devicesPath, r.URL.Path)
		assert.Equal(t, "Bearer test-token-1234567890", r.Header.Get("Authorization"))
		assert.Equal(t, "accepted", r.URL.Query().Get("status"))
		assert.Equal(t, "10", r.URL.Query().Get("per_page"))

		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "d-1", "status": "accepted"},
			{"id": "d-2", "status": "accepted"},
		})
	}))

	devices, err := client.ListDevices(t.Context(), ListDevicesOptions{Status: "accepted", Limit: 10})
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "d-1", devices[0].ID)
	assert.Equal(t, "accepted", devices[1].Status)
}

func TestListDevicesEmptyBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	devices, err := client.ListDevices(t.Context(), ListDevicesOptions{})
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestGetDeviceErrorSanitized(t *testing.T) {
	secretBody := `{"error":"token eyJhbGciOiJIUzI1NiJ9.payload.sig rejected"}`
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(secretBody))
	}))

	_, err := client.GetDevice(t.Context(), "d-1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "Access denied - insufficient permissions for this operation. Your token may lack required permissions (Device Management, Deployment Management).", apiErr.Message)
	assert.NotContains(t, apiErr.Error(), "eyJ")
	assert.NotContains(t, apiErr.Error(), "rejected")
}

func TestNetworkErrorIsGeneric(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1", "test-token", zerolog.Nop(),
		WithTimeout(500*time.Millisecond))
	require.NoError(t, err)

	_, err = client.ListDevices(t.Context(), ListDevicesOptions{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.Equal(t, msgNetworkError, apiErr.Message)
	assert.NotContains(t, apiErr.Error(), "127.0.0.1")
}

func TestPaginationParams(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		skip     int
		perPage  string
		page     string
	}{
		{name: "no values", limit: 0, skip: 0, perPage: "", page: ""},
		{name: "limit only", limit: 25, skip: 0, perPage: "25", page: ""},
		{name: "limit and skip", limit: 10, skip: 30, perPage: "10", page: "4"},
		{name: "skip only uses default page size", limit: 0, skip: 40, perPage: "", page: "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := paginationParams(tt.limit, tt.skip)
			assert.Equal(t, tt.perPage, params.Get("per_page"))
			assert.Equal(t, tt.page, params.Get("page"))
		})
	}
}

func TestListReleasesClientSideFilters(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, releasesPathV2, r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]any{
			{"name": "app-v1.0", "tags": []map[string]string{{"key": "env", "value": "staging"}}},
			{"name": "app-v2.0", "tags": []map[string]string{{"key": "env", "value": "production"}}},
			{"name": "base-image", "tags": []map[string]string{}},
		})
	}))

	t.Run("name filter", func(t *testing.T) {
		releases, err := client.ListReleases(t.Context(), ListReleasesOptions{Name: "APP"})
		require.NoError(t, err)
		require.Len(t, releases, 2)
		assert.Equal(t, "app-v1.0", releases[0].Name)
	})

	t.Run("tag filter", func(t *testing.T) {
		releases, err := client.ListReleases(t.Context(), ListReleasesOptions{Tag: "production"})
		require.NoError(t, err)
		require.Len(t, releases, 1)
		assert.Equal(t, "app-v2.0", releases[0].Name)
	})

	t.Run("no match", func(t *testing.T) {
		releases, err := client.ListReleases(t.Context(), ListReleasesOptions{Name: "nonexistent"})
		require.NoError(t, err)
		assert.Empty(t, releases)
	})
}

func TestGetDeviceInventory(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, inventoryDevicesPath+"/d-1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id": "d-1",
			"attributes": []map[string]any{
				{"name": "kernel", "value": "5.15.0", "scope": "inventory"},
				{"name": "mac", "value": "aa:bb:cc", "scope": "identity", "description": "MAC address"},
				{"name": "", "value": "dropped"},
			},
		})
	}))

	inventory, err := client.GetDeviceInventory(t.Context(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, "d-1", inventory.DeviceID)
	require.Len(t, inventory.Attributes, 2)
	assert.Equal(t, "kernel", inventory.Attributes[0].Name)
	assert.Equal(t, "inventory", inventory.Attributes[0].Description)
	assert.Equal(t, "MAC address", inventory.Attributes[1].Description)
}

func TestListInventoryGroups(t *testing.T) {
	t.Run("object shape", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]map[string]any{
				{"group": "production", "device_count": 12},
			})
		}))

		groups, err := client.ListInventoryGroups(t.Context())
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "production", groups[0].Group)
		assert.Equal(t, 12, groups[0].DeviceCount)
	})

	t.Run("bare name shape", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]string{"production", "staging"})
		}))

		groups, err := client.ListInventoryGroups(t.Context())
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "staging", groups[1].Group)
	})
}

func TestGetDeviceGroup(t *testing.T) {
	t.Run("grouped device", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{"group": "production"})
		}))

		group, err := client.GetDeviceGroup(t.Context(), "d-1")
		require.NoError(t, err)
		assert.Equal(t, "production", group)
	})

	t.Run("upstream failure treated as ungrouped", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		group, err := client.GetDeviceGroup(t.Context(), "d-1")
		require.NoError(t, err)
		assert.Equal(t, "", group)
	})
}

func TestGetDeploymentLogs(t *testing.T) {
	t.Run("collects logs per device and skips failures", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/api/management/v2/deployments/deployments/dep-1/devices", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]map[string]string{{"id": "d-1"}, {"id": "d-2"}})
		})
		mux.HandleFunc("/api/management/v2/deployments/deployments/dep-1/devices/d-1/log", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("INFO: update ok"))
		})
		mux.HandleFunc("/api/management/v2/deployments/deployments/dep-1/devices/d-2/log", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		client, _ := newTestClient(t, mux)

		logs, err := client.GetDeploymentLogs(t.Context(), "dep-1")
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "d-1", logs[0].DeviceID)
		require.Len(t, logs[0].Entries, 1)
		assert.Equal(t, "update ok", logs[0].Entries[0].Message)
	})

	t.Run("unknown deployment yields empty result", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		logs, err := client.GetDeploymentLogs(t.Context(), "dep-404")
		require.NoError(t, err)
		assert.Nil(t, logs)
	})

	t.Run("permission error propagates", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))

		_, err := client.GetDeploymentLogs(t.Context(), "dep-1")
		require.Error(t, err)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	})
}

func TestListAuditLogs(t *testing.T) {
	t.Run("first candidate answers", func(t *testing.T) {
		var paths []string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			assert.Equal(t, "admin@example.com", r.URL.Query().Get("user"))
			json.NewEncoder(w).Encode([]map[string]any{
				{
					"actor":  map[string]string{"id": "u-1", "email": "admin@example.com"},
					"action": "create",
					"object": map[string]string{"id": "dep-1", "type": "deployment"},
					"result": "success",
				},
			})
		}))

		entries, err := client.ListAuditLogs(t.Context(), AuditLogOptions{User: "admin@example.com", Limit: 10})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, []string{auditLogPaths[0]}, paths)
		assert.Equal(t, "admin@example.com", entries[0].User)
		assert.Equal(t, "deployment", entries[0].ObjectType)
		assert.Equal(t, "success", entries[0].Result)
	})

	t.Run("probes candidates in order until one answers", func(t *testing.T) {
		var paths []string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			if len(paths) < 3 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode([]map[string]any{})
		}))

		entries, err := client.ListAuditLogs(t.Context(), AuditLogOptions{})
		require.NoError(t, err)
		assert.Empty(t, entries)
		assert.Equal(t, auditLogPaths[:3], paths)
	})

	t.Run("all candidates missing", func(t *testing.T) {
		var calls int
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusNotFound)
		}))

		_, err := client.ListAuditLogs(t.Context(), AuditLogOptions{})
		require.Error(t, err)
		assert.Equal(t, len(auditLogPaths), calls)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsNotFound())
	})

	t.Run("auth failure stops the probe", func(t *testing.T) {
		var calls int
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, err := client.ListAuditLogs(t.Context(), AuditLogOptions{})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("time range parameters", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "2024-01-01T00:00:00Z", r.URL.Query().Get("created_after"))
			assert.Equal(t, "2024-02-01T00:00:00Z", r.URL.Query().Get("created_before"))
			json.NewEncoder(w).Encode([]map[string]any{})
		}))

		_, err := client.ListAuditLogs(t.Context(), AuditLogOptions{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	})
}
