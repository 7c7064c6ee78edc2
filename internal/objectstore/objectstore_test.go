package objectstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(t.TempDir(), "https://cdn.example.com/objects/", opts...)
	require.NoError(t, err)
	return s
}

func TestPut_ContentAddressedKey(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	a, err := s.Put(ctx, "users/u1", "Logo Final.PNG", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(a.Key, "users/u1/"), a.Key)
	require.True(t, strings.HasSuffix(a.Key, "/Logo-Final.PNG"), a.Key)
	require.Equal(t, "https://cdn.example.com/objects/"+a.Key, a.URL)
	require.Equal(t, int64(9), a.Size)
	require.Equal(t, "image/png", a.ContentType)

	b, err := s.Put(ctx, "users/u1", "Logo Final.PNG", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, a.Key, b.Key, "same bytes and name give the same key")

	c, err := s.Put(ctx, "users/u1", "Logo Final.PNG", "image/png", strings.NewReader("other"))
	require.NoError(t, err)
	require.NotEqual(t, a.Key, c.Key)

	f, err := s.Open(a.Key)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))
}

func TestPut_SniffsContentType(t *testing.T) {
	s := newStore(t)
	obj, err := s.Put(context.Background(), "u", "page", "", strings.NewReader("<html><body>hi</body></html>"))
	require.NoError(t, err)
	require.Equal(t, "text/html; charset=utf-8", obj.ContentType)
}

func TestPut_Errors(t *testing.T) {
	s := newStore(t, WithMaxBytes(4))
	ctx := context.Background()

	_, err := s.Put(ctx, "u", "a.txt", "", strings.NewReader("12345"))
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = s.Put(ctx, "u", "a.txt", "", strings.NewReader(""))
	require.ErrorIs(t, err, ErrEmpty)

	_, err = s.Put(ctx, "../..", "a.txt", "", strings.NewReader("1"))
	require.ErrorIs(t, err, ErrInvalidKey)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Put(cancelled, "u", "a.txt", "", strings.NewReader("1"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "photo.jpg"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\cv.pdf`, "cv.pdf"},
		{"my résumé.pdf", "my-rsum.pdf"},
		{".hidden", "hidden"},
		{"", "file"},
		{"..", "file"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateKey(t *testing.T) {
	valid := []string{"u/abc/file.txt", "a"}
	invalid := []string{"", "/abs", "a/../b", "a/./b", "a//b", "a/.hidden", `a\b`, "../x"}

	for _, k := range valid {
		if err := ValidateKey(k); err != nil {
			t.Errorf("ValidateKey(%q) = %v, want nil", k, err)
		}
	}
	for _, k := range invalid {
		if err := ValidateKey(k); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("ValidateKey(%q) = %v, want ErrInvalidKey", k, err)
		}
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	obj, err := s.Put(context.Background(), "u", "a.txt", "", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(obj.Key))
	_, err = s.Open(obj.Key)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.Delete(obj.Key), ErrNotFound)
}

func TestHandler(t *testing.T) {
	s := newStore(t)
	obj, err := s.Put(context.Background(), "u", "notes.txt", "", bytes.NewReader([]byte("hello")))
	require.NoError(t, err)

	srv := httptest.NewServer(http.StripPrefix("/objects/", s.Handler()))
	defer srv.Close()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"get", http.MethodGet, "/objects/" + obj.Key, http.StatusOK, "hello"},
		{"missing", http.MethodGet, "/objects/u/none/notes.txt", http.StatusNotFound, ""},
		{"traversal", http.MethodGet, "/objects/u/%2e%2e/secret", http.StatusNotFound, ""},
		{"post", http.MethodPost, "/objects/" + obj.Key, http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantBody != "" {
				body, _ := io.ReadAll(resp.Body)
				require.Equal(t, tt.wantBody, string(body))
				require.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
			}
		})
	}
}
