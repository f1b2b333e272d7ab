package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveConfig writes single keys back to config files.
type SaveConfig struct {
	GlobalConfigDir string
	LocalConfigName string
	// Keys lists the keys that may be written. Nil accepts any key.
	Keys []string
}

// GlobalPath returns ~/.config/<GlobalConfigDir>/config.yaml.
func (c SaveConfig) GlobalPath() (string, error) {
	if c.GlobalConfigDir == "" {
		return "", fmt.Errorf("global config directory not configured")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", c.GlobalConfigDir, "config.yaml"), nil
}

// SaveGlobal sets key in the global file. The file is private to the user
// since it may hold credentials.
func (c SaveConfig) SaveGlobal(key, value string) error {
	if err := c.check(key); err != nil {
		return err
	}
	path, err := c.GlobalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return update(path, 0o600, func(m map[string]any) { m[key] = typed(value) })
}

// SaveLocal sets key in the local file under root.
func (c SaveConfig) SaveLocal(root, key, value string) error {
	if root == "" {
		return fmt.Errorf("project root not found")
	}
	if c.LocalConfigName == "" {
		return fmt.Errorf("local config name not configured")
	}
	if err := c.check(key); err != nil {
		return err
	}
	return update(filepath.Join(root, c.LocalConfigName), 0o644,
		func(m map[string]any) { m[key] = typed(value) })
}

// DeleteGlobalKey removes key from the global file. A missing file or
// key is not an error.
func (c SaveConfig) DeleteGlobalKey(key string) error {
	path, err := c.GlobalPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return update(path, 0o600, func(m map[string]any) { delete(m, key) })
}

func (c SaveConfig) check(key string) error {
	if c.Keys != nil && !slices.Contains(c.Keys, key) {
		return fmt.Errorf("unknown config key: %s\n\nValid keys: %s", key, strings.Join(c.Keys, ", "))
	}
	return nil
}

// update rewrites path after applying edit. An unparsable file is an
// error rather than silently replaced.
func update(path string, mode os.FileMode, edit func(map[string]any)) error {
	existing := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if existing == nil {
			existing = map[string]any{}
		}
	case !os.IsNotExist(err):
		return err
	}

	edit(existing)

	out, err := yaml.Marshal(existing)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, mode)
}

// typed stores booleans and integers as YAML scalars of their own type.
func typed(value string) any {
	if value == "true" || value == "false" {
		return value == "true"
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return value
}
