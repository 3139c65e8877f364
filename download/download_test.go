package download_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xeptore/ikala/download"
)

func TestFetchIDMapping(t *testing.T) {
	t.Parallel()

	t.Run("WritesMappingFile", func(t *testing.T) {
		t.Parallel()
		const content = "singer\tsong\n1\t10161\n"
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(content))
		}))
		defer srv.Close()

		destPath := filepath.Join(t.TempDir(), "iKala", "id_mapping.txt")
		require.NoError(t, download.NewClient().FetchIDMapping(context.Background(), srv.URL, destPath))

		got, err := os.ReadFile(destPath)
		require.NoError(t, err)
		assert.Equal(t, content, string(got))

		_, err = os.Stat(destPath + ".tmp")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("RetriesServerErrors", func(t *testing.T) {
		t.Parallel()
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte("singer\tsong\n1\t10161\n"))
		}))
		defer srv.Close()

		destPath := filepath.Join(t.TempDir(), "id_mapping.txt")
		require.NoError(t, download.NewClient().FetchIDMapping(context.Background(), srv.URL, destPath))
		assert.GreaterOrEqual(t, hits.Load(), int32(2))
	})

	t.Run("ClientErrorIsPermanent", func(t *testing.T) {
		t.Parallel()
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		destPath := filepath.Join(t.TempDir(), "id_mapping.txt")
		err := download.NewClient().FetchIDMapping(context.Background(), srv.URL, destPath)
		require.Error(t, err)
		assert.Equal(t, int32(1), hits.Load())

		_, statErr := os.Stat(destPath)
		assert.ErrorIs(t, statErr, os.ErrNotExist)
	})
}
