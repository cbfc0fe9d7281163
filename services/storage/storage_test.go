package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type recordingWriter struct {
	bytes.Buffer
	closed bool
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

// brokenReader yields some data and then fails.
type brokenReader struct{ sent bool }

func (r *brokenReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "partial"), nil
	}
	return 0, errors.New("disk error")
}

func TestCopyToObject(t *testing.T) {
	tests := []struct {
		name       string
		src        io.Reader
		wantErr    string
		wantClosed bool
		wantCancel bool
	}{
		{name: "commits on success", src: bytes.NewReader([]byte("pixels")), wantClosed: true},
		{name: "cancels on read failure", src: &brokenReader{}, wantErr: "disk error", wantCancel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &recordingWriter{}
			cancelled := false

			err := copyToObject(w, tt.src, func() { cancelled = true })
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantClosed, w.closed)
			assert.Equal(t, tt.wantCancel, cancelled)
		})
	}
}

func TestGCSUploadWritesNothingWhenSourceUnreadable(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bucket":"gear","name":"photos/thumbnail_a.png"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	store, err := NewGCSObjectStore(ctx, option.WithEndpoint(srv.URL+"/storage/v1/"), option.WithoutAuthentication())
	require.NoError(t, err)
	defer store.Close()

	// Opening a directory succeeds but reading it fails.
	err = store.Upload(ctx, "gear", t.TempDir(), "photos/thumbnail_a.png", "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to copy file to storage")
	assert.Zero(t, atomic.LoadInt32(&requests))
}
