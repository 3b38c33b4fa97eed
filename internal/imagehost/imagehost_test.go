package imagehost

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticSource(body string) Source {
	return SourceFunc(func(context.Context, string) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	})
}

func TestSupabaseUpload(t *testing.T) {
	var gotPath, gotType, gotBody, gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		_, _ = io.WriteString(w, `{"Key":"listings/obj"}`)
	}))
	defer srv.Close()

	host := NewSupabase(srv.URL+"/", "service-key", "listings", staticSource("jpeg-bytes"))

	url, err := host.Upload(context.Background(), 42, "file-1", "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gotPath, "/storage/v1/object/listings/42/"), gotPath)
	assert.True(t, strings.HasSuffix(gotPath, ".jpg"), gotPath)
	assert.Equal(t, "image/jpeg", gotType)
	assert.Equal(t, "jpeg-bytes", gotBody)
	assert.Equal(t, "service-key", gotKey)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Contains(t, url, "/object/public/listings/42/")
}

func TestSupabaseUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"statusCode":"400","error":"Bad Request","message":"bucket not found"}`)
	}))
	defer srv.Close()

	host := NewSupabase(srv.URL, "key", "missing", staticSource("x"))
	_, err := host.Upload(context.Background(), 1, "f", "image/png")
	assert.Error(t, err)
}

func TestSupabaseUploadSourceError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	boom := errors.New("telegram down")
	src := SourceFunc(func(context.Context, string) (io.ReadCloser, error) { return nil, boom })
	host := NewSupabase(srv.URL, "key", "b", src)

	_, err := host.Upload(context.Background(), 1, "f", "")
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, calls.Load())
}

func TestSupabaseUploadsOverlap(t *testing.T) {
	var arrived atomic.Int32
	both := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if arrived.Add(1) == 2 {
			close(both)
		}
		select {
		case <-both:
		case <-time.After(2 * time.Second):
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"Key":"k"}`)
	}))
	defer srv.Close()

	host := NewSupabase(srv.URL, "key", "b", staticSource("png"))
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = host.Upload(context.Background(), int64(i), "f", "image/png")
		}(i)
	}
	wg.Wait()
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
}

func TestObjectPath(t *testing.T) {
	assert.Equal(t, "7/abc.png", ObjectPath(7, "abc", "image/png"))
	assert.Equal(t, "7/abc.jpg", ObjectPath(7, "abc", normalizeContentType("application/pdf")))
	assert.Equal(t, "image/webp", normalizeContentType("Image/WEBP; q=1"))
}

func TestFileRefs(t *testing.T) {
	url, err := FileRefs{}.Upload(context.Background(), 1, "AgAD", "")
	require.NoError(t, err)
	assert.Equal(t, "tg-file:AgAD", url)

	_, err = FileRefs{}.Upload(context.Background(), 1, " ", "")
	assert.Error(t, err)
}
