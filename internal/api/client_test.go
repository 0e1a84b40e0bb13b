package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/dogfight/internal/storage"
	"github.com/OCAP2/dogfight/pkg/core"
)

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, "secret", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthcheck", r.URL.Path)
		w.WriteHeader(status)
	}))
	defer server.Close()

	c := New(server.URL, "")
	assert.NoError(t, c.Healthcheck(context.Background()))

	status = http.StatusInternalServerError
	assert.Error(t, c.Healthcheck(context.Background()))
}

func TestHealthcheck_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	assert.Error(t, New(url, "").Healthcheck(context.Background()))
}

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "match.json.gz")
	require.NoError(t, os.WriteFile(path, []byte("recording"), 0o644))
	return path
}

func TestUpload(t *testing.T) {
	form := map[string]string{}
	var content []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/matches", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		content, _ = io.ReadAll(f)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	err := New(server.URL, "key").Upload(context.Background(), writeExport(t), core.UploadMetadata{
		MatchName: "Furball",
		WorldName: "range",
		Duration:  61.5,
		Tag:       "tvt",
		Aircraft:  4,
		SessionID: "abc",
	})
	require.NoError(t, err)

	assert.Equal(t, "key", form["secret"])
	assert.Equal(t, "match.json.gz", form["filename"])
	assert.Equal(t, "Furball", form["matchName"])
	assert.Equal(t, "61.500", form["duration"])
	assert.Equal(t, "4", form["aircraft"])
	assert.Equal(t, "abc", form["sessionId"])
	assert.Equal(t, "recording", string(content))
}

func TestUpload_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()
	c := New(server.URL, "")

	assert.ErrorContains(t, c.Upload(context.Background(), writeExport(t), core.UploadMetadata{}), "403")
	assert.ErrorContains(t, c.Upload(context.Background(), filepath.Join(t.TempDir(), "missing"), core.UploadMetadata{}), "open file")
}

type exportingBackend struct {
	storage.Backend
	path string
}

func (b exportingBackend) GetExportedFilePath() string            { return b.path }
func (b exportingBackend) GetExportMetadata() core.UploadMetadata { return core.UploadMetadata{MatchName: "m"} }

func TestUploadBackend(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	c := New(server.URL, "")

	uploaded, err := c.UploadBackend(context.Background(), exportingBackend{})
	require.NoError(t, err)
	assert.False(t, uploaded)

	var plain storage.Backend
	uploaded, err = c.UploadBackend(context.Background(), plain)
	require.NoError(t, err)
	assert.False(t, uploaded)

	uploaded, err = c.UploadBackend(context.Background(), exportingBackend{path: writeExport(t)})
	require.NoError(t, err)
	assert.True(t, uploaded)
	assert.Equal(t, 1, calls)
}
