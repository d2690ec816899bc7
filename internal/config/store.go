package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	yaml "go.yaml.in/yaml/v3"

	logx "lifepath/pkg/logx"
)

// settle is how long the file must stay quiet before a reload; editors
// usually save with several events.
const settle = 250 * time.Millisecond

var errWatchClosed = errors.New("config: watcher closed")

// Store owns the active config and reloads it from disk.
type Store struct {
	path   string
	getenv func(string) string
	log    logx.Logger

	cur atomic.Pointer[Config]

	mu    sync.Mutex // serializes Reload
	check func(ctx context.Context, next *Config) error
}

// NewStore reads from path. An empty path means the environment alone.
func NewStore(path string) *Store {
	return &Store{path: strings.TrimSpace(path), getenv: os.Getenv}
}

func (s *Store) Path() string { return s.path }

func (s *Store) SetLogger(log logx.Logger) { s.log = log }

// SetEnv replaces os.Getenv.
func (s *Store) SetEnv(fn func(string) string) { s.getenv = fn }

// SetCheck adds a reload-only check run after Validate.
func (s *Store) SetCheck(fn func(ctx context.Context, next *Config) error) {
	s.mu.Lock()
	s.check = fn
	s.mu.Unlock()
}

// Current is nil until Load succeeds.
func (s *Store) Current() *Config { return s.cur.Load() }

// Read decodes the file, overlays the environment and fills defaults.
// A missing file reads as empty. Nothing is validated.
func (s *Store) Read() (*Config, error) {
	cfg := new(Config)
	if s.path != "" {
		b, err := os.ReadFile(s.path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if err := decode(s.path, b, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", s.path, err)
		}
	}
	if err := cfg.ApplyEnv(s.getenv); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Load reads and validates the config and makes it current.
func (s *Store) Load() (*Config, error) {
	cfg, err := s.Read()
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	s.cur.Store(cfg)
	return cfg, nil
}

// Reload makes the file's config current when it is valid and differs from
// the current one. It returns nil, nil for an unchanged file; a rejected
// config leaves the current one in place.
func (s *Store) Reload(ctx context.Context) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.Read()
	if err != nil {
		return nil, err
	}
	if err := Validate(next); err != nil {
		return nil, err
	}
	if reflect.DeepEqual(next, s.cur.Load()) {
		return nil, nil
	}
	if s.check != nil {
		cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.check(cctx, next); err != nil {
			return nil, err
		}
	}
	s.cur.Store(next)
	return next, nil
}

// Watch reloads on file changes and hands every accepted config to apply,
// one at a time, until ctx ends. It returns an error when the watcher
// breaks; the caller restarts it.
func (s *Store) Watch(ctx context.Context, apply func(prev, next *Config)) error {
	if s.path == "" {
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// the directory, so rename-on-save still reaches us
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return err
	}
	name := filepath.Base(s.path)

	quiet := time.NewTimer(settle)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errWatchClosed
			}
			if filepath.Base(ev.Name) == name && !ev.Has(fsnotify.Chmod) {
				quiet.Reset(settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errWatchClosed
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				return err
			}
			quiet.Reset(settle)
		case <-quiet.C:
			prev := s.Current()
			next, err := s.Reload(ctx)
			switch {
			case err != nil:
				s.log.Warn("config rejected; keeping previous", logx.String("path", s.path), logx.Err(err))
			case next != nil:
				apply(prev, next)
			}
		}
	}
}

// decode is strict: unknown keys and trailing documents are errors.
// .json files go through encoding/json; anything else is YAML.
func decode(path string, b []byte, cfg *Config) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return err
		}
		if dec.More() {
			return errors.New("trailing data after config")
		}
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return errors.New("config has more than one YAML document")
	}
	return nil
}
