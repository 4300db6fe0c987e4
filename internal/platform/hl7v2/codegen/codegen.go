// Package codegen writes typed Go wrappers for HL7 v2 message structures
// from the schema tables. Each message and each of its groups gets a struct
// embedding the model node, with accessors per child.
package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"strings"
	"text/template"
	"unicode"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/schema"
)

var ErrUnknownStructure = errors.New("codegen: unknown message structure")

// Options selects what to generate.
type Options struct {
	// Package is the Go package name of the output file.
	Package string
	// Version is the schema to read structures from.
	Version *schema.Version
}

type file struct {
	Package   string
	Version   string
	Structure string
	Types     []*typeData
}

type typeData struct {
	Name      string
	Root      bool
	Structure string
	Group     string
	Grammar   string
	Children  []childData
}

type childData struct {
	Name      string
	Method    string
	Group     bool
	Repeating bool
	Wrap      string
}

// Generate returns the gofmt-ed source for structure.
func Generate(opts Options, structure string) ([]byte, error) {
	if opts.Version == nil {
		return nil, errors.New("codegen: no schema version")
	}
	if opts.Package == "" {
		return nil, errors.New("codegen: no package name")
	}
	root, ok := opts.Version.Structure(structure)
	if !ok {
		return nil, fmt.Errorf("%w: %s in version %s", ErrUnknownStructure, structure, opts.Version.ID())
	}

	f := &file{Package: opts.Package, Version: opts.Version.ID(), Structure: structure}
	taken := make(map[string]bool)
	collect(f, root, TypeName(structure), true, taken)

	var buf bytes.Buffer
	if err := fileTemplate.Execute(&buf, f); err != nil {
		return nil, fmt.Errorf("codegen: %s: %w", structure, err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("codegen: %s: format: %w", structure, err)
	}
	return src, nil
}

// collect appends the type for node and, depth first, its group children.
func collect(f *file, node *schema.Node, name string, root bool, taken map[string]bool) {
	taken[name] = true
	t := &typeData{Name: name, Root: root, Grammar: node.String()}
	if root {
		t.Structure = node.Name
	} else {
		t.Group = node.Name
	}
	f.Types = append(f.Types, t)

	used := make(map[string]bool)
	for _, c := range node.Children {
		childName := uniqueName(c.Name, used)
		cd := childData{
			Name:      childName,
			Group:     c.IsGroup(),
			Repeating: c.Repeating,
		}
		if cd.Group {
			cd.Method = camel(childName)
			cd.Wrap = groupTypeName(f.Types[0].Name, name, cd.Method, taken)
			t.Children = append(t.Children, cd)
			collect(f, c, cd.Wrap, false, taken)
			continue
		}
		cd.Method = childName
		t.Children = append(t.Children, cd)
	}
}

// uniqueName mirrors model.Group child naming: a repeated name gets a
// numeric suffix starting at 2.
func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s%d", name, n)
	}
	used[candidate] = true
	return candidate
}

// groupTypeName prefers <Message><Group> and falls back to the parent's type
// name when two groups share a name.
func groupTypeName(rootType, parentType, method string, taken map[string]bool) string {
	name := rootType + method
	if !taken[name] {
		return name
	}
	name = parentType + method
	for n := 2; taken[name]; n++ {
		name = fmt.Sprintf("%s%s%d", parentType, method, n)
	}
	return name
}

// TypeName converts a structure id such as ADT_A01 to a Go type name.
func TypeName(structure string) string {
	return strings.ReplaceAll(structure, "_", "")
}

// FileName is the output file for structure, e.g. adt_a01.go.
func FileName(structure string) string {
	return strings.ToLower(structure) + ".go"
}

// camel turns ORDER_OBSERVATION into OrderObservation.
func camel(s string) string {
	var b strings.Builder
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		r := []rune(strings.ToLower(part))
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

var fileTemplate = template.Must(template.New("file").Parse(`// Code generated by hl7-gen. DO NOT EDIT.

package {{.Package}}

import (
	"fmt"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/schema"
)
{{range .Types}}{{$t := .}}
{{- if .Root}}
// {{.Name}} is the {{.Structure}} message structure:
//
//	{{.Grammar}}
type {{.Name}} struct {
	*model.Message
}

// New{{.Name}} returns an empty {{.Structure}} message for HL7 {{$.Version}}
// with MSH-1 and MSH-2 filled in.
func New{{.Name}}() (*{{.Name}}, error) {
	v, err := schema.Default().Version("{{$.Version}}")
	if err != nil {
		return nil, err
	}
	m := v.NewMessage("{{.Structure}}")
	if _, err := m.MSH(); err != nil {
		return nil, err
	}
	m.SetDelimiters(m.Delimiters())
	return &{{.Name}}{Message: m}, nil
}

// As{{.Name}} wraps msg, which must have structure {{.Structure}}.
func As{{.Name}}(msg *model.Message) (*{{.Name}}, error) {
	if msg.Structure() != "{{.Structure}}" {
		return nil, fmt.Errorf("%w: %s is not {{.Structure}}", model.ErrWrongKind, msg.Structure())
	}
	return &{{.Name}}{Message: msg}, nil
}
{{- else}}
// {{.Name}} is the {{.Group}} group of {{$.Structure}}:
//
//	{{.Grammar}}
type {{.Name}} struct {
	*model.Group
}
{{- end}}
{{range .Children}}
{{- if .Group}}
// {{.Method}} returns the {{if .Repeating}}first {{end}}{{.Name}} group, creating it if absent.
func (s *{{$t.Name}}) {{.Method}}() (*{{.Wrap}}, error) {
	g, err := s.GetGroup("{{.Name}}", 0)
	if err != nil {
		return nil, err
	}
	return &{{.Wrap}}{Group: g}, nil
}
{{- if .Repeating}}

// {{.Method}}Rep returns repetition rep of {{.Name}}. Asking for the next
// unused repetition creates it.
func (s *{{$t.Name}}) {{.Method}}Rep(rep int) (*{{.Wrap}}, error) {
	g, err := s.GetGroup("{{.Name}}", rep)
	if err != nil {
		return nil, err
	}
	return &{{.Wrap}}{Group: g}, nil
}

// {{.Method}}RepetitionsUsed returns how many {{.Name}} groups exist.
func (s *{{$t.Name}}) {{.Method}}RepetitionsUsed() int {
	return s.Count("{{.Name}}")
}

// Add{{.Method}} appends a {{.Name}} group.
func (s *{{$t.Name}}) Add{{.Method}}() (*{{.Wrap}}, error) {
	g, err := s.AddGroup("{{.Name}}")
	if err != nil {
		return nil, err
	}
	return &{{.Wrap}}{Group: g}, nil
}

// Remove{{.Method}} removes the given {{.Name}} group.
func (s *{{$t.Name}}) Remove{{.Method}}(g *{{.Wrap}}) error {
	return s.Remove("{{.Name}}", g.Group)
}

// Remove{{.Method}}At removes and returns repetition rep of {{.Name}}.
func (s *{{$t.Name}}) Remove{{.Method}}At(rep int) (*{{.Wrap}}, error) {
	g, err := s.RemoveGroupAt("{{.Name}}", rep)
	if err != nil {
		return nil, err
	}
	return &{{.Wrap}}{Group: g}, nil
}

// {{.Method}}All returns every {{.Name}} group.
func (s *{{$t.Name}}) {{.Method}}All() ([]*{{.Wrap}}, error) {
	groups, err := s.GroupReps("{{.Name}}")
	if err != nil {
		return nil, err
	}
	out := make([]*{{.Wrap}}, len(groups))
	for i, g := range groups {
		out[i] = &{{.Wrap}}{Group: g}
	}
	return out, nil
}
{{- end}}
{{- else}}
// {{.Method}} returns the {{if .Repeating}}first {{end}}{{.Name}} segment, creating it if absent.
func (s *{{$t.Name}}) {{.Method}}() (*model.Segment, error) {
	return s.GetSegment("{{.Name}}", 0)
}
{{- if .Repeating}}

// {{.Method}}Rep returns repetition rep of {{.Name}}. Asking for the next
// unused repetition creates it.
func (s *{{$t.Name}}) {{.Method}}Rep(rep int) (*model.Segment, error) {
	return s.GetSegment("{{.Name}}", rep)
}

// {{.Method}}RepetitionsUsed returns how many {{.Name}} segments exist.
func (s *{{$t.Name}}) {{.Method}}RepetitionsUsed() int {
	return s.Count("{{.Name}}")
}

// Add{{.Method}} appends a {{.Name}} segment.
func (s *{{$t.Name}}) Add{{.Method}}() (*model.Segment, error) {
	return s.AddSegment("{{.Name}}")
}

// Remove{{.Method}} removes the given {{.Name}} segment.
func (s *{{$t.Name}}) Remove{{.Method}}(seg *model.Segment) error {
	return s.Remove("{{.Name}}", seg)
}

// Remove{{.Method}}At removes and returns repetition rep of {{.Name}}.
func (s *{{$t.Name}}) Remove{{.Method}}At(rep int) (*model.Segment, error) {
	return s.RemoveSegmentAt("{{.Name}}", rep)
}

// {{.Method}}All returns every {{.Name}} segment.
func (s *{{$t.Name}}) {{.Method}}All() ([]*model.Segment, error) {
	return s.SegmentReps("{{.Name}}")
}
{{- end}}
{{- end}}
{{end}}
{{- end}}
`))
