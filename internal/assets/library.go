package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/lawnchairsociety/minedepths/internal/logger"
	"github.com/lawnchairsociety/minedepths/internal/mine"
)

// ErrMissingAsset is returned when no file or template exists for a name.
var ErrMissingAsset = errors.New("map asset not found")

var baseTemplate = regexp.MustCompile(`^mine_(\d+)$`)

// Library serves map assets from a directory of YAML files. Base template
// names with no file fall back to generated maps when procedural is on.
type Library struct {
	dir        string
	procedural bool
	width      int
	height     int

	mu    sync.RWMutex
	cache map[string]*TileMap
}

// NewLibrary creates a library rooted at dir. An empty dir serves only
// generated maps.
func NewLibrary(dir string, procedural bool) *Library {
	return &Library{
		dir:        dir,
		procedural: procedural,
		width:      DefaultWidth,
		height:     DefaultHeight,
		cache:      make(map[string]*TileMap),
	}
}

// SetTemplateSize changes the size of generated maps. Cached maps keep
// their size.
func (l *Library) SetTemplateSize(w, h int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.width, l.height = w, h
}

func (l *Library) path(name string) string {
	return filepath.Join(l.dir, name+".yaml")
}

func (l *Library) fileExists(name string) bool {
	if l.dir == "" {
		return false
	}
	_, err := os.Stat(l.path(name))
	return err == nil
}

// HasMapAsset reports whether LoadMapAsset would succeed for name.
func (l *Library) HasMapAsset(name string) bool {
	l.mu.RLock()
	_, cached := l.cache[name]
	l.mu.RUnlock()
	if cached || l.fileExists(name) {
		return true
	}
	_, ok := l.templateIndex(name)
	return ok
}

// LoadMapAsset returns the named map, reading or generating it on first use.
func (l *Library) LoadMapAsset(name string) (mine.Grid, error) {
	m, err := l.Load(name)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Load is LoadMapAsset with the concrete map type.
func (l *Library) Load(name string) (*TileMap, error) {
	l.mu.RLock()
	m, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return m, nil
	}

	switch {
	case l.fileExists(name):
		loaded, err := LoadMapFromYAML(l.path(name))
		if err != nil {
			return nil, fmt.Errorf("map %s: %w", name, err)
		}
		loaded.Name = name
		m = loaded
	default:
		template, ok := l.templateIndex(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingAsset, name)
		}
		l.mu.RLock()
		w, h := l.width, l.height
		l.mu.RUnlock()
		m = Generate(template, w, h)
		logger.Debug("generated map template", "name", name, "width", w, "height", h)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.cache[name]; ok {
		return existing, nil
	}
	l.cache[name] = m
	return m, nil
}

func (l *Library) templateIndex(name string) (int, bool) {
	if !l.procedural {
		return 0, false
	}
	match := baseTemplate.FindStringSubmatch(name)
	if match == nil {
		return 0, false
	}
	n, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Names lists the map files in the library directory.
func (l *Library) Names() ([]string, error) {
	if l.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list maps: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}
