package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// EnvPrefix maps key "row_limit" to <EnvPrefix>ROW_LIMIT.
	EnvPrefix string

	// GlobalConfigDir names the directory under ~/.config holding
	// config.yaml.
	GlobalConfigDir string

	// LocalConfigName is the per-project file, looked up from the working
	// directory towards the filesystem root.
	LocalConfigName string

	Defaults map[string]string

	// Keys restricts file and env lookup to these keys. Nil accepts any key
	// found in a file, and env lookup covers the defaults.
	Keys []string

	// ErrWriter receives warnings. Defaults to os.Stderr.
	ErrWriter io.Writer
}

// Resolver merges configuration layers.
type Resolver struct {
	cfg        ResolverConfig
	globalPath string
	localPath  string
	root       string

	// Warnings collects non-fatal problems, such as unparsable files.
	Warnings []string
}

// NewResolver locates the global file under the user's home and the local
// file in the project root: the nearest directory holding LocalConfigName
// or .git, or the working directory when neither exists.
func NewResolver(cfg ResolverConfig) *Resolver {
	r := &Resolver{cfg: cfg}
	if cfg.GlobalConfigDir != "" {
		if home, err := os.UserHomeDir(); err == nil {
			r.globalPath = filepath.Join(home, ".config", cfg.GlobalConfigDir, "config.yaml")
		}
	}
	if wd, err := os.Getwd(); err == nil {
		r.root = findProjectRoot(wd, cfg.LocalConfigName)
		if r.root == "" {
			r.root = wd
		}
		if cfg.LocalConfigName != "" {
			r.localPath = filepath.Join(r.root, cfg.LocalConfigName)
		}
	}
	return r
}

// NewResolverWithPaths uses explicit file paths. Empty paths skip the
// layer.
func NewResolverWithPaths(cfg ResolverConfig, globalPath, localPath string) *Resolver {
	r := &Resolver{cfg: cfg, globalPath: globalPath, localPath: localPath}
	if localPath != "" {
		r.root = filepath.Dir(localPath)
	}
	return r
}

// ProjectRoot is the directory holding the local config file.
func (r *Resolver) ProjectRoot() string { return r.root }

// GlobalPath is the global config file path.
func (r *Resolver) GlobalPath() string { return r.globalPath }

// LocalPath is the local config file path.
func (r *Resolver) LocalPath() string { return r.localPath }

// Resolve merges defaults, global, local and env layers.
func (r *Resolver) Resolve() *Resolved {
	c := &Resolved{values: make(map[string]entry)}
	for k, v := range r.cfg.Defaults {
		c.set(k, v, SourceDefault)
	}
	r.loadFile(c, r.globalPath, SourceGlobal)
	r.loadFile(c, r.localPath, SourceLocal)
	r.loadEnv(c)
	return c
}

// ResolveWithFlags resolves and then applies non-empty flag values.
func (r *Resolver) ResolveWithFlags(flags map[string]string) *Resolved {
	c := r.Resolve()
	for k, v := range flags {
		if v != "" {
			c.set(k, v, SourceFlag)
		}
	}
	return c
}

func (r *Resolver) loadFile(c *Resolved, path string, src Source) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", path, err))
		return
	}
	for k, v := range parsed {
		if !r.accepts(k) {
			r.warn(fmt.Sprintf("%s: unknown key %q ignored", path, k))
			continue
		}
		if s, ok := scalar(v); ok && s != "" {
			c.set(k, s, src)
		}
	}
}

func (r *Resolver) loadEnv(c *Resolved) {
	if r.cfg.EnvPrefix == "" {
		return
	}
	keys := r.cfg.Keys
	if keys == nil {
		for k := range r.cfg.Defaults {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		name := r.cfg.EnvPrefix + strings.ToUpper(strings.ReplaceAll(k, "-", "_"))
		if v := os.Getenv(name); v != "" {
			c.set(k, v, SourceEnv)
		}
	}
}

func (r *Resolver) accepts(key string) bool {
	return r.cfg.Keys == nil || slices.Contains(r.cfg.Keys, key)
}

func (r *Resolver) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	w := r.cfg.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "Warning: %s\n", msg)
}

// =============================================================================
// Resolved
// =============================================================================

type entry struct {
	value  string
	source Source
}

// Resolved is the merged configuration.
type Resolved struct {
	values map[string]entry
}

// set keeps the value from the highest-precedence source.
func (c *Resolved) set(key, value string, src Source) {
	if cur, ok := c.values[key]; ok && cur.source.Precedence() > src.Precedence() {
		return
	}
	c.values[key] = entry{value: value, source: src}
}

// Get returns the value of key, or "".
func (c *Resolved) Get(key string) string { return c.values[key].value }

// Source returns where key's value came from, or "" when unset.
func (c *Resolved) Source(key string) Source { return c.values[key].source }

// GetWithSource returns the value of key and its source.
func (c *Resolved) GetWithSource(key string) (string, Source) {
	e := c.values[key]
	return e.value, e.source
}

// All returns a copy of every value.
func (c *Resolved) All() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, e := range c.values {
		out[k] = e.value
	}
	return out
}

// Keys returns the set keys, sorted.
func (c *Resolved) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// scalar renders a YAML scalar as a config string. Lists are joined with
// commas; maps are rejected.
func scalar(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := scalar(item)
			if !ok {
				return "", false
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), true
	}
	return "", false
}

// findProjectRoot walks up from dir to the first directory containing
// name or a .git directory.
func findProjectRoot(dir, name string) string {
	for {
		if name != "" {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return dir
			}
		}
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
