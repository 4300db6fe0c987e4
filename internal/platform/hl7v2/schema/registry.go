// Package schema holds the per-version HL7 v2 tables (event map, data types,
// segment definitions and message grammars) and builds message trees from
// them.
package schema

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
)

var (
	ErrUnsupportedVersion = errors.New("schema: unsupported HL7 version")
	ErrInvalidTable       = errors.New("schema: invalid table")
)

//go:embed tables/*.yaml
var embedded embed.FS

// layer is one set of table files loaded together. Reloading a layer
// replaces its previous contents.
type layer struct {
	name  string
	files []*tableFile
}

// Registry maps HL7 version ids to resolved schemas.
type Registry struct {
	mu       sync.RWMutex
	logger   zerolog.Logger
	layers   []layer
	versions map[string]*Version
	loads    atomic.Int64
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns a process-wide registry with the built-in tables.
func Default() *Registry {
	defaultOnce.Do(func() {
		r, err := NewRegistry(zerolog.Nop())
		if err != nil {
			panic(fmt.Sprintf("schema: built-in tables: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

// NewRegistry creates a registry loaded with the built-in tables.
func NewRegistry(logger zerolog.Logger) (*Registry, error) {
	r := &Registry{
		logger:   logger.With().Str("component", "hl7-schema").Logger(),
		versions: make(map[string]*Version),
	}
	if err := r.load("builtin", embedded, "tables/*.yaml"); err != nil {
		return nil, err
	}
	return r, nil
}

// Load adds the table files matching patterns in fsys. Files for an existing
// version overlay its tables.
func (r *Registry) Load(fsys fs.FS, patterns ...string) error {
	return r.load(fmt.Sprintf("fs-%d", r.loads.Add(1)), fsys, patterns...)
}

// LoadDir loads every .yaml/.yml file in dir. Loading the same directory again
// replaces what it contributed before.
func (r *Registry) LoadDir(dir string) error {
	return r.load("dir:"+dir, os.DirFS(dir), "*.yaml", "*.yml")
}

func (r *Registry) load(name string, fsys fs.FS, patterns ...string) error {
	var files []*tableFile
	for _, pattern := range patterns {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return fmt.Errorf("schema: glob %q: %w", pattern, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			data, err := fs.ReadFile(fsys, m)
			if err != nil {
				return fmt.Errorf("schema: read %s: %w", m, err)
			}
			tf, err := decodeTable(data, path.Base(m))
			if err != nil {
				return err
			}
			files = append(files, tf)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	layers := make([]layer, 0, len(r.layers)+1)
	replaced := false
	for _, l := range r.layers {
		if l.name == name {
			layers = append(layers, layer{name: name, files: files})
			replaced = true
			continue
		}
		layers = append(layers, l)
	}
	if !replaced {
		layers = append(layers, layer{name: name, files: files})
	}

	versions, err := buildVersions(layers)
	if err != nil {
		return err
	}
	r.layers = layers
	r.versions = versions
	r.logger.Debug().Str("layer", name).Int("files", len(files)).Int("versions", len(versions)).Msg("schema tables loaded")
	return nil
}

func decodeTable(data []byte, source string) (*tableFile, error) {
	var tf tableFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTable, source, err)
	}
	tf.Version = strings.TrimSpace(tf.Version)
	if tf.Version == "" {
		return nil, fmt.Errorf("%w: %s: missing version", ErrInvalidTable, source)
	}
	tf.source = source
	return &tf, nil
}

// Version returns the schema for id, e.g. "2.5.1".
func (r *Registry) Version(id string) (*Version, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.versions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, id)
	}
	return v, nil
}

// Versions returns the known version ids in sorted order.
func (r *Registry) Versions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.versions))
	for id := range r.versions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// buildVersions merges the layers per version and resolves extends chains.
func buildVersions(layers []layer) (map[string]*Version, error) {
	merged := make(map[string]*tableFile)
	for _, l := range layers {
		for _, f := range l.files {
			if cur, ok := merged[f.Version]; ok {
				cur.merge(f)
				continue
			}
			merged[f.Version] = f.clone()
		}
	}

	resolved := make(map[string]*tableFile, len(merged))
	var resolve func(id string, visiting map[string]bool) (*tableFile, error)
	resolve = func(id string, visiting map[string]bool) (*tableFile, error) {
		if t, ok := resolved[id]; ok {
			return t, nil
		}
		own, ok := merged[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, id)
		}
		if visiting[id] {
			return nil, fmt.Errorf("%w: extends cycle at %s", ErrInvalidTable, id)
		}
		visiting[id] = true
		full := &tableFile{Version: id, Extends: own.Extends}
		if own.Extends != "" {
			parent, err := resolve(own.Extends, visiting)
			if err != nil {
				return nil, fmt.Errorf("%w: %s extends %s: %v", ErrInvalidTable, id, own.Extends, err)
			}
			full.merge(parent)
			full.Extends = own.Extends
		}
		full.merge(own)
		resolved[id] = full
		return full, nil
	}

	versions := make(map[string]*Version, len(merged))
	for id := range merged {
		full, err := resolve(id, make(map[string]bool))
		if err != nil {
			return nil, err
		}
		v, err := compile(full)
		if err != nil {
			return nil, err
		}
		versions[id] = v
	}
	return versions, nil
}

func compile(t *tableFile) (*Version, error) {
	v := &Version{
		id:        t.Version,
		parent:    t.Extends,
		events:    mergeMap(nil, t.Events),
		datatypes: mergeMap(nil, t.DataTypes),
		segments:  make(map[string][]model.FieldDef, len(t.Segments)),
		grammars:  mergeMap(nil, t.Messages),
		messages:  make(map[string]*Node, len(t.Messages)),
	}
	for name, rows := range t.Segments {
		defs := make([]model.FieldDef, len(rows))
		for i, row := range rows {
			defs[i] = model.FieldDef(row)
		}
		v.segments[name] = defs
	}
	for name, grammar := range t.Messages {
		node, err := ParseGrammar(name, grammar)
		if err != nil {
			return nil, fmt.Errorf("%w: version %s: %v", ErrInvalidTable, t.Version, err)
		}
		if len(node.Children) == 0 || node.Children[0].Name != "MSH" {
			return nil, fmt.Errorf("%w: version %s: %s must start with MSH", ErrInvalidTable, t.Version, name)
		}
		v.messages[name] = node
	}
	for event, structure := range v.events {
		if _, ok := v.messages[structure]; !ok {
			return nil, fmt.Errorf("%w: version %s: event %s maps to unknown structure %s", ErrInvalidTable, t.Version, event, structure)
		}
	}
	return v, nil
}
