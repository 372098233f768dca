package mender

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListReleasesFallsBackToV1(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == releasesPathV2 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.Equal(t, releasesPathV1, r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]any{
			{
				"name": "release-1",
				"artifacts": []map[string]any{
					{"id": "a-1", "name": "artifact-1"},
					{"id": "a-2", "name": "artifact-2"},
				},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-token", zerolog.Nop())
	require.NoError(t, err)

	releases, err := client.ListReleases(t.Context(), ListReleasesOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{releasesPathV2, releasesPathV1}, paths)
	require.Len(t, releases, 1)
	assert.Equal(t, "release-1", releases[0].Name)
	// v1 has no artifacts_count, so it is derived from the artifact list
	assert.Equal(t, 2, releases[0].ArtifactsCount)
}

func TestListReleasesV2Answers(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, releasesPathV2, r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]any{
			{"name": "release-1", "artifacts_count": 3},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-token", zerolog.Nop())
	require.NoError(t, err)

	releases, err := client.ListReleases(t.Context(), ListReleasesOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	require.Len(t, releases, 1)
	assert.Equal(t, 3, releases[0].ArtifactsCount)
}

func TestFallbackDoesNotEscalateAuthErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-token", zerolog.Nop())
	require.NoError(t, err)

	_, err = client.ListReleases(t.Context(), ListReleasesOptions{})
	require.Error(t, err)

	assert.Equal(t, 1, calls)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestGetReleaseScansCatalogAfterDoubleNotFound(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case releasesPathV2 + "/wanted", releasesPathV1 + "/wanted":
			w.WriteHeader(http.StatusNotFound)
		case releasesPathV2:
			json.NewEncoder(w).Encode([]map[string]any{
				{"name": "other"},
				{"name": "wanted", "artifacts_count": 1},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-token", zerolog.Nop())
	require.NoError(t, err)

	release, err := client.GetRelease(t.Context(), "wanted")
	require.NoError(t, err)

	assert.Equal(t, []string{releasesPathV2 + "/wanted", releasesPathV1 + "/wanted", releasesPathV2}, paths)
	assert.Equal(t, "wanted", release.Name)
	assert.Equal(t, 1, release.ArtifactsCount)
}

func TestGetReleaseMissEverywhere(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == releasesPathV2 {
			json.NewEncoder(w).Encode([]map[string]any{{"name": "other"}})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-token", zerolog.Nop())
	require.NoError(t, err)

	_, err = client.GetRelease(t.Context(), "wanted")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsNotFound())
	assert.Contains(t, apiErr.Message, `No release named "wanted" exists`)
}

func TestGetDeploymentDeviceLogFallsBackToV1(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if len(paths) == 1 {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("2023-08-27T12:30:45Z INFO: installed"))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-token", zerolog.Nop())
	require.NoError(t, err)

	log, err := client.GetDeploymentDeviceLog(t.Context(), "dep-1", "d-1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/api/management/v2/deployments/deployments/dep-1/devices/d-1/log",
		"/api/management/v1/deployments/deployments/dep-1/devices/d-1/log",
	}, paths)
	require.Len(t, log.Entries, 1)
	assert.Equal(t, "INFO", log.Entries[0].Level)
	assert.Equal(t, "installed", log.Entries[0].Message)
}
