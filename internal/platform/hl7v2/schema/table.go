package schema

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
)

// tableFile is the YAML layout of one schema file.
type tableFile struct {
	Version   string                `yaml:"version"`
	Extends   string                `yaml:"extends"`
	Events    map[string]string     `yaml:"events"`
	DataTypes map[string][]string   `yaml:"datatypes"`
	Segments  map[string][]fieldRow `yaml:"segments"`
	Messages  map[string]string     `yaml:"messages"`

	source string
}

// fieldRow is a flow sequence: [type, usage, reps, length, name, table].
type fieldRow model.FieldDef

func (f *fieldRow) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: field must be a sequence", node.Line)
	}
	if len(node.Content) < 5 || len(node.Content) > 6 {
		return fmt.Errorf("line %d: field needs 5 or 6 entries, got %d", node.Line, len(node.Content))
	}
	v := make([]string, len(node.Content))
	for i, c := range node.Content {
		if c.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: field entry %d must be a scalar", c.Line, i+1)
		}
		v[i] = strings.TrimSpace(c.Value)
	}

	def := model.FieldDef{Type: v[0], Name: v[4]}
	switch strings.ToUpper(v[1]) {
	case "R":
		def.Required = true
	case "O", "C", "B", "X", "W", "RE", "CE":
	default:
		return fmt.Errorf("line %d: unknown usage %q", node.Line, v[1])
	}
	if v[2] != "*" {
		n, err := strconv.Atoi(v[2])
		if err != nil || n < 0 {
			return fmt.Errorf("line %d: bad repetition count %q", node.Line, v[2])
		}
		def.MaxReps = n
	}
	if v[3] != "" {
		n, err := strconv.Atoi(v[3])
		if err != nil {
			return fmt.Errorf("line %d: bad length %q", node.Line, v[3])
		}
		def.Length = n
	}
	if len(v) == 6 && v[5] != "" {
		n, err := strconv.Atoi(v[5])
		if err != nil {
			return fmt.Errorf("line %d: bad table %q", node.Line, v[5])
		}
		def.Table = n
	}
	*f = fieldRow(def)
	return nil
}

// merge overlays other onto t. Entries in other replace entries in t.
func (t *tableFile) merge(other *tableFile) {
	if other.Extends != "" {
		t.Extends = other.Extends
	}
	t.Events = mergeMap(t.Events, other.Events)
	t.DataTypes = mergeMap(t.DataTypes, other.DataTypes)
	t.Segments = mergeMap(t.Segments, other.Segments)
	t.Messages = mergeMap(t.Messages, other.Messages)
}

func mergeMap[V any](dst, src map[string]V) map[string]V {
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (t *tableFile) clone() *tableFile {
	c := &tableFile{Version: t.Version, Extends: t.Extends, source: t.source}
	c.merge(t)
	return c
}
