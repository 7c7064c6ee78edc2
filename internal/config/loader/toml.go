package loader

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// IncludeKey is the directive that pulls other files into a config file.
const IncludeKey = "@include"

// DefaultMaxDepth bounds nested includes.
const DefaultMaxDepth = 8

// ErrIncludeCycle is returned when a file includes itself, directly or not.
var ErrIncludeCycle = errors.New("include cycle")

// TOMLLoader loads configuration from TOML files.
type TOMLLoader struct {
	fs       FileSystem
	maxDepth int
}

// NewTOMLLoader creates a TOML loader reading from the OS file system.
func NewTOMLLoader() *TOMLLoader {
	return NewTOMLLoaderWithFS(DefaultFS())
}

// NewTOMLLoaderWithFS creates a TOML loader with a custom file system.
func NewTOMLLoaderWithFS(fsys FileSystem) *TOMLLoader {
	return &TOMLLoader{fs: fsys, maxDepth: DefaultMaxDepth}
}

// LoadFile reads a single file without processing includes.
// Returns nil, nil if the file doesn't exist.
func (l *TOMLLoader) LoadFile(name string) (map[string]any, error) {
	data, err := l.fs.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", name, err)
	}
	return parse(name, data)
}

// LoadReader reads configuration from r. Includes are not processed.
func (l *TOMLLoader) LoadReader(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse("<reader>", data)
}

// Load reads name and everything it includes, merged into one map.
// A missing top-level file yields nil, nil; a missing include is an error.
func (l *TOMLLoader) Load(name string) (map[string]any, error) {
	return l.load(name, l.maxDepth, map[string]bool{})
}

func (l *TOMLLoader) load(name string, depth int, active map[string]bool) (map[string]any, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("include depth exceeded for %s", name)
	}
	key := filepath.Clean(name)
	if active[key] {
		return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, name)
	}
	active[key] = true
	defer delete(active, key)

	config, err := l.LoadFile(name)
	if err != nil || config == nil {
		return config, err
	}

	includes, ok := config[IncludeKey]
	if !ok {
		return config, nil
	}
	delete(config, IncludeKey)

	list, err := includeList(includes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	merged := make(map[string]any)
	for _, inc := range list {
		incPath := inc
		if !path.IsAbs(inc) && !filepath.IsAbs(inc) {
			incPath = filepath.Join(filepath.Dir(name), inc)
		}

		incConfig, err := l.load(incPath, depth-1, active)
		if err != nil {
			return nil, fmt.Errorf("loading include %s: %w", incPath, err)
		}
		if incConfig == nil {
			return nil, fmt.Errorf("loading include %s: %w", incPath, fs.ErrNotExist)
		}
		merged = DeepMerge(merged, incConfig)
	}

	return DeepMerge(merged, config), nil
}

func includeList(v any) ([]string, error) {
	switch v := v.(type) {
	case string:
		return []string{v}, nil
	case []any:
		list := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must be string or array of strings", IncludeKey)
			}
			list = append(list, s)
		}
		return list, nil
	default:
		return nil, fmt.Errorf("%s must be string or array of strings, got %T", IncludeKey, v)
	}
}

func parse(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := toml.Unmarshal(data, &config); err != nil {
		pe := &ParseError{Path: source, Message: err.Error(), Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
		}
		return nil, pe
	}
	if config == nil {
		config = make(map[string]any)
	}
	return config, nil
}

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DeepMerge recursively merges src into dst and returns dst.
// Values in src override values in dst.
// Maps are merged recursively; other types (arrays included) are replaced.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}

	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = DeepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = srcVal
	}

	return dst
}
