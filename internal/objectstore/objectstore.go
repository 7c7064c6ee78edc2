// Package objectstore stores uploaded files in a filesystem-backed bucket and
// serves them under a public URL prefix.
//
// Keys are content addressed: namespace/<xxh3-128 hex>/<sanitized filename>.
// Uploading identical bytes under the same name yields the same key.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

// Errors returned by the store.
var (
	ErrNotFound   = errors.New("object not found")
	ErrTooLarge   = errors.New("object too large")
	ErrEmpty      = errors.New("object is empty")
	ErrInvalidKey = errors.New("invalid object key")
)

// Object describes a stored file.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Store is a filesystem bucket.
type Store struct {
	root     string
	baseURL  string
	maxBytes int64
	logger   *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxBytes limits the size of a single object. Zero means unlimited.
func WithMaxBytes(n int64) Option {
	return func(s *Store) {
		s.maxBytes = n
	}
}

// WithLogger sets the store logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates the bucket directory if needed.
func New(root, publicBaseURL string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("object store root is required")
	}
	s := &Store{
		root:    filepath.Clean(root),
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("create object store root: %w", err)
	}
	return s, nil
}

// Put streams r into the bucket and returns the stored object.
// An empty contentType is sniffed from the first bytes.
func (s *Store) Put(ctx context.Context, namespace, filename, contentType string, r io.Reader) (Object, error) {
	ns, err := sanitizeNamespace(namespace)
	if err != nil {
		return Object{}, err
	}
	name := SanitizeFilename(filename)

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("create temp object: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	sniff := &sniffer{}
	hasher := xxh3.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher, sniff), contextReader{ctx: ctx, r: src})
	if err != nil {
		return Object{}, fmt.Errorf("write object: %w", err)
	}
	if size == 0 {
		return Object{}, ErrEmpty
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return Object{}, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxBytes)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("close object: %w", err)
	}

	sum := hasher.Sum128().Bytes()
	key := path.Join(ns, fmt.Sprintf("%x", sum), name)
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, fmt.Errorf("create object dir: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return Object{}, fmt.Errorf("store object: %w", err)
	}

	if contentType == "" {
		contentType = http.DetectContentType(sniff.buf)
	}
	s.logger.Debug("object stored",
		zap.String("key", key),
		zap.Int64("size", size),
		zap.String("content_type", contentType),
	)
	return Object{Key: key, URL: s.URL(key), Size: size, ContentType: contentType}, nil
}

// Open returns a reader for the object.
func (s *Store) Open(key string) (*os.File, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return f, err
}

// Delete removes the object and any directories it leaves empty.
func (s *Store) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	p := s.path(key)
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("delete object: %w", err)
	}
	for dir := filepath.Dir(p); dir != s.root && strings.HasPrefix(dir, s.root); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return nil
}

// URL returns the public URL of key.
func (s *Store) URL(key string) string {
	return s.baseURL + "/" + key
}

func (s *Store) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// ValidateKey rejects keys that could escape the bucket.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "." || seg == ".." || strings.HasPrefix(seg, ".") {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

func sanitizeNamespace(ns string) (string, error) {
	var parts []string
	for _, seg := range strings.Split(strings.Trim(ns, "/"), "/") {
		seg = sanitizeSegment(seg)
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: empty namespace", ErrInvalidKey)
	}
	return strings.Join(parts, "/"), nil
}

// SanitizeFilename reduces a client-supplied name to a safe path segment.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	name = sanitizeSegment(name)
	if name == "" {
		return "file"
	}
	return name
}

func sanitizeSegment(seg string) string {
	var b strings.Builder
	for _, r := range seg {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('-')
		}
	}
	return strings.TrimLeft(b.String(), ".-")
}

// sniffer keeps the first 512 bytes for content type detection.
type sniffer struct {
	buf []byte
}

func (s *sniffer) Write(p []byte) (int, error) {
	if room := 512 - len(s.buf); room > 0 {
		s.buf = append(s.buf, p[:min(room, len(p))]...)
	}
	return len(p), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
