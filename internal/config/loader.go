package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ReloadDelay is how long the loader waits for writes to settle before
// reloading a changed file.
const ReloadDelay = 100 * time.Millisecond

// Load reads the configuration at path on top of the defaults, then applies
// environment overrides and validates the result. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// loadFile parses path according to its extension.
func loadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	default:
		if err := autoDetect(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// autoDetect tries JSON, TOML and YAML in turn. Each attempt starts from the
// defaults so a failed parse leaves nothing behind.
func autoDetect(data []byte, cfg *Config) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("decode JSON: %w", err)
		}
		return nil
	}

	candidate := DefaultConfig()
	if _, err := toml.Decode(string(data), candidate); err == nil {
		*cfg = *candidate
		return nil
	}

	candidate = DefaultConfig()
	if err := yaml.Unmarshal(data, candidate); err == nil {
		*cfg = *candidate
		return nil
	}

	return fmt.Errorf("unable to parse config file (tried JSON, TOML, YAML)")
}

// Save writes cfg to path as TOML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode TOML: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Loader holds the current configuration and reloads it when the file
// changes.
type Loader struct {
	path string

	mu       sync.RWMutex
	config   *Config
	onChange []func(*Config)

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup

	// reloadMu is held while a reload runs. Once closed is set no further
	// reload reaches the callbacks.
	reloadMu sync.Mutex
	closed   bool
}

// NewLoader creates a loader for path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads the configuration and makes it current.
func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns the current configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// OnChange registers fn to be called with every successfully reloaded
// configuration.
func (l *Loader) OnChange(fn func(*Config)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts reloading the configuration when its file is written. The
// directory is watched so editors that replace the file are noticed.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	l.watcher = watcher
	l.done = make(chan struct{})
	l.wg.Add(1)
	go l.watchLoop()

	return nil
}

func (l *Loader) watchLoop() {
	defer l.wg.Done()

	debounced := debounce.New(ReloadDelay)
	name := filepath.Base(l.path)

	for {
		select {
		case <-l.done:
			// Replace a pending reload with a no-op.
			debounced(func() {})
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounced(l.reload)

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Config watcher error: %v", err)
		}
	}
}

// reload loads the file again. An invalid file is logged and the current
// configuration stays in place.
func (l *Loader) reload() {
	l.reloadMu.Lock()
	defer l.reloadMu.Unlock()
	if l.closed {
		return
	}

	cfg, err := Load(l.path)
	if err != nil {
		log.Printf("Ignoring config change: %v", err)
		return
	}

	l.mu.Lock()
	l.config = cfg
	callbacks := slices.Clone(l.onChange)
	l.mu.Unlock()

	log.Printf("Config reloaded from %s", l.path)
	for _, fn := range callbacks {
		fn(cfg)
	}
}

// Close stops watching. Callbacks do not run after Close returns.
func (l *Loader) Close() error {
	l.reloadMu.Lock()
	l.closed = true
	l.reloadMu.Unlock()

	if l.watcher == nil {
		return nil
	}
	close(l.done)
	err := l.watcher.Close()
	l.wg.Wait()
	l.watcher = nil
	return err
}
