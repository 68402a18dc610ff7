package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides: database.password is read
// from STEPUP_DATABASE_PASSWORD when set.
const EnvPrefix = "STEPUP"

// Viper is a Config backed by github.com/spf13/viper. Reads are safe while
// a file change is being applied.
type Viper struct {
	mu     sync.RWMutex
	v      *viper.Viper
	path   string
	closed bool
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	applyDefaults(v)
	return v
}

// NewViper reads the file at path, typed by its extension, and reloads it
// whenever it changes. A reload that fails to parse keeps the last values;
// one that succeeds replaces them, so keys removed from the file fall back
// to defaults.
func NewViper(path string) (*Viper, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	// The watcher re-reads the instance it belongs to on its own goroutine,
	// so readers are switched to a freshly parsed copy instead.
	vc := &Viper{v: v, path: path}
	watcher := newViper()
	watcher.SetConfigFile(path)
	watcher.OnConfigChange(func(e fsnotify.Event) {
		vc.reload(e.Name)
	})
	watcher.WatchConfig()

	return vc, nil
}

// NewViperFromBytes parses data of the given type ("yaml", "json", "toml").
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	v := newViper()
	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

func (vc *Viper) reload(name string) {
	// editors truncate before writing; an empty file is a write in progress
	if fi, err := os.Stat(vc.path); err != nil || fi.Size() == 0 {
		return
	}

	next := newViper()
	next.SetConfigFile(vc.path)
	if err := next.ReadInConfig(); err != nil {
		slog.Error("config reload failed, keeping previous values", "file", name, "error", err)
		return
	}

	vc.mu.Lock()
	defer vc.mu.Unlock()
	if vc.closed {
		return
	}
	vc.v = next
	slog.Info("config reloaded", "file", name)
}

func (vc *Viper) read(fn func(v *viper.Viper)) {
	vc.mu.RLock()
	defer vc.mu.RUnlock()
	fn(vc.v)
}

func (vc *Viper) GetInt(key string) (n int) {
	vc.read(func(v *viper.Viper) { n = v.GetInt(key) })
	return n
}

func (vc *Viper) GetInt32(key string) (n int32) {
	vc.read(func(v *viper.Viper) { n = v.GetInt32(key) })
	return n
}

func (vc *Viper) GetUint64(key string) (n uint64) {
	vc.read(func(v *viper.Viper) { n = v.GetUint64(key) })
	return n
}

func (vc *Viper) GetBool(key string) (b bool) {
	vc.read(func(v *viper.Viper) { b = v.GetBool(key) })
	return b
}

func (vc *Viper) GetFloat64(key string) (f float64) {
	vc.read(func(v *viper.Viper) { f = v.GetFloat64(key) })
	return f
}

func (vc *Viper) GetSecond(key string) time.Duration {
	var n int64
	vc.read(func(v *viper.Viper) { n = v.GetInt64(key) })
	return time.Duration(n) * time.Second
}

func (vc *Viper) GetMinute(key string) time.Duration {
	var n int64
	vc.read(func(v *viper.Viper) { n = v.GetInt64(key) })
	return time.Duration(n) * time.Minute
}

func (vc *Viper) GetString(key string) (s string) {
	vc.read(func(v *viper.Viper) { s = v.GetString(key) })
	return s
}

func (vc *Viper) GetBinary(key string) []byte {
	data, err := base64.StdEncoding.DecodeString(vc.GetString(key))
	if err != nil {
		return nil
	}
	return data
}

func (vc *Viper) GetArray(key string) []string {
	var out []string
	for item := range strings.SplitSeq(vc.GetString(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Close stops applying file changes. viper has no way to stop its watcher
// goroutine, so events are ignored from here on.
func (vc *Viper) Close() error {
	vc.mu.Lock()
	vc.closed = true
	vc.mu.Unlock()
	return nil
}
