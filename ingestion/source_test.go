package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/works.txt" {
			w.Write([]byte("Exit, pursued by a bear."))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	text, err := (&HTTPSource{URL: server.URL + "/works.txt"}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Exit, pursued by a bear.", text)

	_, err = (&HTTPSource{URL: server.URL + "/missing.txt"}).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Contains(t, err.Error(), "404")

	_, err = (&HTTPSource{URL: "http://127.0.0.1:0/"}).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sonnets.txt")
	require.NoError(t, os.WriteFile(path, []byte("Shall I compare thee to a summer's day?"), 0644))

	src := &FileSource{Path: path}
	text, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Shall I compare thee to a summer's day?", text)
	assert.Equal(t, path, src.String())

	_, err = (&FileSource{Path: path + ".missing"}).Fetch(context.Background())
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestTextSource(t *testing.T) {
	src := &TextSource{Text: "O Romeo"}
	text, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "O Romeo", text)
	assert.Equal(t, "text", src.String())
}
