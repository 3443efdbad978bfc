package entity

import (
	"encoding/json"
	"reflect"
	"strings"

	"go.uber.org/zap"
)

// alwaysShown are included for every entity type in addition to the
// descriptor's own defaults.
var alwaysShown = []string{"id", "created", "modified"}

// Options controls one projection call.
type Options struct {
	// Show lists dotted paths to include beyond the defaults. Paths may
	// omit the root segment; it is prepended on the outermost call.
	Show []string
	// Hide lists dotted paths to exclude.
	Hide []string
	// TypeName, when set, is emitted as the output's __typename
	// discriminator.
	TypeName string
	// RawKeys disables camelCase key rendering.
	RawKeys bool
}

// Projector converts entities into visibility-filtered nested mappings.
type Projector struct {
	logger *zap.Logger
}

// NewProjector creates a projector. A nil logger falls back to a no-op one.
func NewProjector(logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{logger: logger}
}

// Project builds the transport mapping for e. The path root is the entity's
// own collection name; every show/hide entry missing that root prefix is
// rewritten to carry it.
//
// Projection terminates on cyclic relationship graphs. A relation's dotted
// path joins the hide set for its branch before the projector descends, and
// each branch additionally carries the set of collections already expanded
// along it: a relation pointing back at any of them is omitted. Branches
// receive their own copies of both sets, so siblings never interfere.
func (p *Projector) Project(e Entity, opts Options) map[string]any {
	root := strings.ToLower(e.Descriptor().Collection)

	show := make([]string, len(opts.Show))
	for i, entry := range opts.Show {
		show[i] = prependPath(root, entry)
	}
	hide := make([]string, len(opts.Hide))
	for i, entry := range opts.Hide {
		hide[i] = prependPath(root, entry)
	}

	return p.project(e, projection{
		show:    show,
		hide:    hide,
		visited: []string{root},
		path:    root,
		camel:   !opts.RawKeys,
	}, opts.TypeName)
}

// projection is the per-branch traversal state. Descending copies it, so a
// branch never observes mutations made by its siblings.
type projection struct {
	show    []string
	hide    []string
	visited []string
	path    string
	camel   bool
}

func (s projection) descend(relation, target string) projection {
	child := projection{
		show:    copySlice(s.show),
		hide:    extend(s.hide, s.path+"."+relation),
		visited: copySlice(s.visited),
		path:    s.path + "." + strings.ToLower(relation),
		camel:   s.camel,
	}
	if target != "" {
		child.visited = append(child.visited, target)
	}
	return child
}

func (p *Projector) project(e Entity, state projection, typeName string) map[string]any {
	desc := e.Descriptor()

	defaults := make([]string, 0, len(desc.Defaults)+len(alwaysShown))
	defaults = append(defaults, desc.Defaults...)
	defaults = append(defaults, alwaysShown...)

	out := make(map[string]any, len(desc.Fields))
	if typeName != "" {
		out["__typename"] = typeName
	}

	for _, f := range desc.Fields {
		check := state.path + "." + f.Name
		if containsString(state.hide, check) || containsString(desc.Hidden, f.Name) {
			continue
		}
		if !containsString(state.show, check) && !containsString(defaults, f.Name) {
			continue
		}

		key := f.Name
		if state.camel {
			key = SnakeToCamel(f.Name)
		}

		switch f.Kind {
		case Relation:
			value := e.Field(f.Name)
			target := relationTarget(value)
			if target != "" && containsString(state.visited, target) {
				continue
			}
			child := state.descend(f.Name, target)
			if f.List {
				out[key] = p.projectList(value, child)
			} else {
				out[key] = p.projectSingle(value, child)
			}
		case Computed:
			value := e.Field(f.Name)
			if sub, ok := value.(Entity); ok && !isNilEntity(sub) {
				target := strings.ToLower(sub.Descriptor().Collection)
				if containsString(state.visited, target) {
					continue
				}
				out[key] = p.project(sub, state.descend(f.Name, target), "")
				continue
			}
			generic, err := structural(value)
			if err != nil {
				p.logger.Error("could not serialise the field", zap.String("field", check), zap.Error(err))
				continue
			}
			out[key] = generic
		default:
			out[key] = SerializeValue(e.Field(f.Name))
		}
	}

	return out
}

func (p *Projector) projectList(value any, state projection) []map[string]any {
	items, _ := value.([]Entity)
	result := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if isNilEntity(item) {
			continue
		}
		branch := projection{
			show:    copySlice(state.show),
			hide:    copySlice(state.hide),
			visited: copySlice(state.visited),
			path:    state.path,
			camel:   state.camel,
		}
		result = append(result, p.project(item, branch, ""))
	}
	return result
}

func (p *Projector) projectSingle(value any, state projection) any {
	related, ok := value.(Entity)
	if !ok || isNilEntity(related) {
		return nil
	}
	return p.project(related, state, "")
}

// relationTarget returns the collection name of the entity (or first list
// element) behind a relation value, or "" when there is nothing to descend
// into.
func relationTarget(value any) string {
	switch v := value.(type) {
	case Entity:
		if isNilEntity(v) {
			return ""
		}
		return strings.ToLower(v.Descriptor().Collection)
	case []Entity:
		for _, item := range v {
			if !isNilEntity(item) {
				return strings.ToLower(item.Descriptor().Collection)
			}
		}
	}
	return ""
}

// structural is the fallback for computed values without a projectable
// shape: round-trip through JSON so nested structs flatten into plain
// mappings.
func structural(value any) (any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// prependPath normalizes a show/hide entry to lower case with the root
// collection as its leading segment.
func prependPath(root, name string) string {
	name = strings.ToLower(name)
	if strings.SplitN(name, ".", 2)[0] == root {
		return name
	}
	if name == "" {
		return name
	}
	if name[0] != '.' {
		name = "." + name
	}
	return root + name
}

func containsString(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}

func copySlice(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func extend(values []string, extra string) []string {
	out := make([]string, 0, len(values)+1)
	out = append(out, values...)
	return append(out, extra)
}

// isNilEntity guards against typed nil pointers stored in the interface.
func isNilEntity(e Entity) bool {
	if e == nil {
		return true
	}
	rv := reflect.ValueOf(e)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
