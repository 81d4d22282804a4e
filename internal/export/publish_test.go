package export

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type recordingUploader struct {
	names []string
	failOn string
}

func (u *recordingUploader) Upload(_ context.Context, name string, _ []byte, _ string) (string, error) {
	if name == u.failOn {
		return "", errors.New("bucket unavailable")
	}
	u.names = append(u.names, name)
	return "mem://" + name, nil
}

func emptyBlob(t *testing.T) []byte {
	t.Helper()
	data, err := Marshal(&Blob{
		Venues:   []Venue{},
		Shows:    []Show{},
		Metadata: Metadata{Version: FormatVersion, GeneratedAt: "2025-06-15T16:00:00Z", Sources: []string{}},
	})
	require.NoError(t, err)
	return data
}

func TestVersionedName(t *testing.T) {
	at := time.Date(2025, time.June, 15, 16, 4, 5, 0, time.UTC)
	assert.Equal(t, "versions/theater-data-20250615T160405Z.json", VersionedName(at))
}

func TestPublish(t *testing.T) {
	u := &recordingUploader{}

	res, err := Publish(context.Background(), u, emptyBlob(t), exportNow, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{VersionedName(exportNow), LatestName}, u.names)
	assert.Equal(t, "mem://"+LatestName, res.Latest)
}

func TestPublish_RejectsInvalidBlob(t *testing.T) {
	u := &recordingUploader{}

	_, err := Publish(context.Background(), u, []byte(`{"venues": "none"}`), exportNow, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation")
	assert.Empty(t, u.names)
}

func TestPublish_VersionFailureSkipsLatest(t *testing.T) {
	u := &recordingUploader{failOn: VersionedName(exportNow)}

	_, err := Publish(context.Background(), u, emptyBlob(t), exportNow, zerolog.Nop())
	require.Error(t, err)
	assert.Empty(t, u.names)
}

func TestDirUploader(t *testing.T) {
	dir := t.TempDir()
	u := &DirUploader{Dir: dir}

	data := emptyBlob(t)
	res, err := Publish(context.Background(), u, data, exportNow, zerolog.Nop())
	require.NoError(t, err)

	latest, err := os.ReadFile(filepath.Join(dir, LatestName))
	require.NoError(t, err)
	assert.Equal(t, string(data), string(latest))
	_, err = os.Stat(filepath.Join(dir, "versions", "theater-data-20250615T160000Z.json"))
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, LatestName), res.Latest)
}

func TestGCSUploader(t *testing.T) {
	var mu sync.Mutex
	var paths, bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		paths = append(paths, r.URL.Path)
		bodies = append(bodies, string(body))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bucket": "theater-test", "name": "ignored"}`))
	}))
	defer srv.Close()

	u, err := NewGCSUploader(context.Background(), "theater-test", "/data/",
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	loc, err := u.Upload(context.Background(), LatestName, []byte(`{"payload":1}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "gs://theater-test/data/theater-data.json", loc)

	require.Len(t, paths, 1)
	assert.Contains(t, paths[0], "/b/theater-test/o")
	assert.True(t, strings.Contains(bodies[0], "data/theater-data.json"))
	assert.True(t, strings.Contains(bodies[0], `{"payload":1}`))
}

func TestNewGCSUploader_RequiresBucket(t *testing.T) {
	_, err := NewGCSUploader(context.Background(), "", "")
	assert.Error(t, err)
}
