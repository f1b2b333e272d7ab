package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Template names used by the report stages.
const (
	Analyze         = "analyze"
	Insight         = "insight"
	Plan            = "plan"
	WriteResearched = "write-researched"
	WriteDerived    = "write-derived"

	SystemAnalyst = "system-analyst"
	SystemPlanner = "system-planner"
	SystemSection = "system-section"
	SystemFinal   = "system-final"
)

// embeddedPrompts holds the default prompts compiled into the binary.
//
//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// Loader loads and renders prompt templates. It is safe for concurrent use.
type Loader struct {
	mu      sync.RWMutex
	dirs    []string                      // Directories to search
	cache   map[string]*template.Template // Parsed templates
	funcMap template.FuncMap
}

// NewLoader creates a loader that searches dirs in order and falls back to
// the embedded prompts. Missing directories are skipped.
func NewLoader(dirs ...string) *Loader {
	return &Loader{
		dirs:    dirs,
		cache:   make(map[string]*template.Template),
		funcMap: defaultFuncMap(),
	}
}

// ForDataDir creates a loader that lets <dataDir>/prompts override the
// embedded prompts.
func ForDataDir(dataDir string) *Loader {
	if dataDir == "" {
		return NewLoader()
	}
	return NewLoader(filepath.Join(dataDir, "prompts"))
}

// AddSearchDir adds a directory searched before all others.
func (l *Loader) AddSearchDir(dir string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dirs = append([]string{dir}, l.dirs...)
	l.cache = make(map[string]*template.Template)
}

// AddFunc adds a custom template function. Call before the first Render.
func (l *Loader) AddFunc(name string, fn any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.funcMap[name] = fn
	l.cache = make(map[string]*template.Template)
}

// Load renders a prompt that takes no data.
func (l *Loader) Load(name string) (string, error) {
	return l.Render(name, nil)
}

// Render executes the named template with data.
func (l *Loader) Render(name string, data any) (string, error) {
	tmpl, err := l.getTemplate(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// Exists checks if a prompt exists.
func (l *Loader) Exists(name string) bool {
	_, err := l.loadRaw(name)
	return err == nil
}

// List returns all available prompt names, sorted.
func (l *Loader) List() []string {
	names := make(map[string]bool)
	collect := func(entries []os.DirEntry) {
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".txt") {
				names[strings.TrimSuffix(entry.Name(), ".txt")] = true
			}
		}
	}

	l.mu.RLock()
	dirs := append([]string(nil), l.dirs...)
	l.mu.RUnlock()

	for _, dir := range dirs {
		if entries, err := os.ReadDir(dir); err == nil {
			collect(entries)
		}
	}
	if entries, err := embeddedPrompts.ReadDir("prompts"); err == nil {
		collect(entries)
	}

	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// ClearCache drops parsed templates so edited files are re-read.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*template.Template)
}

func (l *Loader) getTemplate(name string) (*template.Template, error) {
	l.mu.RLock()
	tmpl, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	content, err := l.loadRaw(name)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	tmpl, err = template.New(name).Funcs(l.funcMap).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}
	l.cache[name] = tmpl
	return tmpl, nil
}

func (l *Loader) loadRaw(name string) (string, error) {
	filename := name + ".txt"

	l.mu.RLock()
	dirs := append([]string(nil), l.dirs...)
	l.mu.RUnlock()

	for _, dir := range dirs {
		data, err := os.ReadFile(filepath.Join(dir, filename))
		if err == nil {
			return string(data), nil
		}
	}

	data, err := embeddedPrompts.ReadFile("prompts/" + filename)
	if err != nil {
		return "", fmt.Errorf("prompt not found: %s", name)
	}
	return string(data), nil
}

func defaultFuncMap() template.FuncMap {
	return template.FuncMap{
		"join":     strings.Join,
		"trim":     strings.TrimSpace,
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"title":    titleCase,
		"contains": strings.Contains,
		"indent":   indentString,
		"default":  defaultValue,
		"bullets":  bullets,
	}
}

// titleCase builds a Caser per call; a cases.Caser is stateful and must
// not be shared between concurrent renders.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// indentString indents all non-empty lines of a string.
func indentString(indent int, s string) string {
	if s == "" {
		return s
	}
	prefix := strings.Repeat(" ", indent)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// defaultValue returns the default if value is empty.
func defaultValue(defaultVal, value any) any {
	switch v := value.(type) {
	case nil:
		return defaultVal
	case string:
		if v == "" {
			return defaultVal
		}
	case []string:
		if len(v) == 0 {
			return defaultVal
		}
	}
	return value
}

// bullets renders items as a "- " list, or "(none)" when empty.
func bullets(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(item)
	}
	return b.String()
}
