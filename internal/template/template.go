// Package template builds CloudFormation templates from typed resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	infra "github.com/jeffrosenberg/random-notion-infra"
)

// FormatVersion is the only template format version CloudFormation accepts.
const FormatVersion = "2010-09-09"

var (
	// ErrCycle is returned when resources depend on each other in a loop.
	ErrCycle = errors.New("circular dependency detected")

	// ErrUndefinedReference is returned when a Ref, GetAtt or Sub names
	// something that is neither a resource nor a parameter.
	ErrUndefinedReference = errors.New("undefined reference")

	// ErrDuplicateName is returned when a logical name is registered twice.
	ErrDuplicateName = errors.New("duplicate logical name")
)

type entry struct {
	value               infra.Resource
	dependsOn           []string
	deletionPolicy      string
	updateReplacePolicy string
}

// Option customizes a resource entry.
type Option func(*entry)

// DependsOn adds explicit DependsOn entries.
func DependsOn(names ...string) Option {
	return func(e *entry) {
		e.dependsOn = append(e.dependsOn, names...)
	}
}

// Retain keeps the resource when it is deleted from the stack or replaced.
func Retain() Option {
	return func(e *entry) {
		e.deletionPolicy = "Retain"
		e.updateReplacePolicy = "Retain"
	}
}

// DeletionPolicy sets the DeletionPolicy attribute.
func DeletionPolicy(policy string) Option {
	return func(e *entry) {
		e.deletionPolicy = policy
	}
}

// Builder collects resources, parameters, mappings and outputs and
// produces a CloudFormation template.
type Builder struct {
	description string
	resources   map[string]*entry
	parameters  map[string]infra.Parameter
	mappings    map[string]any
	outputs     map[string]infra.Output
}

// NewBuilder creates an empty template builder.
func NewBuilder(description string) *Builder {
	return &Builder{
		description: description,
		resources:   make(map[string]*entry),
		parameters:  make(map[string]infra.Parameter),
		mappings:    make(map[string]any),
		outputs:     make(map[string]infra.Output),
	}
}

// AddResource registers a resource under a logical name.
func (b *Builder) AddResource(name string, r infra.Resource, opts ...Option) error {
	if err := b.checkName(name); err != nil {
		return err
	}
	e := &entry{value: r}
	for _, opt := range opts {
		opt(e)
	}
	b.resources[name] = e
	return nil
}

// AddParameter registers a template parameter.
func (b *Builder) AddParameter(name string, p infra.Parameter) error {
	if err := b.checkName(name); err != nil {
		return err
	}
	if p.Type == "" {
		p.Type = "String"
	}
	b.parameters[name] = p
	return nil
}

// AddMapping registers a Mappings table.
func (b *Builder) AddMapping(name string, m any) {
	b.mappings[name] = m
}

// AddOutput registers a template output.
func (b *Builder) AddOutput(name string, o infra.Output) {
	b.outputs[name] = o
}

// Has reports whether a resource or parameter is registered under name.
func (b *Builder) Has(name string) bool {
	_, isResource := b.resources[name]
	_, isParam := b.parameters[name]
	return isResource || isParam
}

func (b *Builder) checkName(name string) error {
	if name == "" {
		return errors.New("logical name must not be empty")
	}
	if b.Has(name) {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	return nil
}

// Build constructs the CloudFormation template.
//
// Resource properties are normalized through JSON so that typed structs and
// intrinsic helpers serialize identically in JSON and YAML. Every reference
// must resolve to a resource or parameter, and the resource graph must be
// acyclic.
func (b *Builder) Build() (*infra.Template, error) {
	t := &infra.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Resources:                make(map[string]infra.ResourceDef, len(b.resources)),
	}

	for _, name := range sortedKeys(b.resources) {
		e := b.resources[name]
		props, err := normalizeProperties(e.value)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", name, err)
		}
		for _, dep := range e.dependsOn {
			if _, ok := b.resources[dep]; !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUndefinedReference, name, dep)
			}
		}
		t.Resources[name] = infra.ResourceDef{
			Type:                e.value.ResourceType(),
			Properties:          props,
			DependsOn:           uniqueSorted(e.dependsOn),
			DeletionPolicy:      e.deletionPolicy,
			UpdateReplacePolicy: e.updateReplacePolicy,
		}
	}

	if len(b.parameters) > 0 {
		t.Parameters = make(map[string]infra.Parameter, len(b.parameters))
		for name, p := range b.parameters {
			t.Parameters[name] = p
		}
	}

	if len(b.mappings) > 0 {
		t.Mappings = make(map[string]any, len(b.mappings))
		for name, m := range b.mappings {
			v, err := normalize(m)
			if err != nil {
				return nil, fmt.Errorf("serializing mapping %s: %w", name, err)
			}
			t.Mappings[name] = v
		}
	}

	if len(b.outputs) > 0 {
		t.Outputs = make(map[string]infra.Output, len(b.outputs))
		for name, o := range b.outputs {
			v, err := normalize(o.Value)
			if err != nil {
				return nil, fmt.Errorf("serializing output %s: %w", name, err)
			}
			o.Value = v
			if o.Export != nil {
				exportName, err := normalize(o.Export.Name)
				if err != nil {
					return nil, fmt.Errorf("serializing output %s: %w", name, err)
				}
				o.Export = &infra.Export{Name: exportName}
			}
			t.Outputs[name] = o
		}
	}

	if err := checkReferences(t); err != nil {
		return nil, err
	}
	if _, err := Order(t); err != nil {
		return nil, err
	}
	return t, nil
}

// checkReferences reports the first reference (in name order) that names
// neither a resource nor a parameter.
func checkReferences(t *infra.Template) error {
	known := func(name string) bool {
		if _, ok := t.Resources[name]; ok {
			return true
		}
		_, ok := t.Parameters[name]
		return ok
	}

	for _, name := range sortedKeys(t.Resources) {
		for _, ref := range References(t.Resources[name].Properties) {
			if !known(ref) {
				return fmt.Errorf("%w: %s references %s", ErrUndefinedReference, name, ref)
			}
		}
	}
	for _, name := range sortedKeys(t.Outputs) {
		for _, ref := range References(t.Outputs[name].Value) {
			if !known(ref) {
				return fmt.Errorf("%w: output %s references %s", ErrUndefinedReference, name, ref)
			}
		}
	}
	return nil
}

// Dependencies returns, for every resource, the sorted resources it depends
// on through references or explicit DependsOn. References to parameters and
// pseudo parameters are not dependencies.
func Dependencies(t *infra.Template) map[string][]string {
	deps := make(map[string][]string, len(t.Resources))
	for name, res := range t.Resources {
		var list []string
		for _, ref := range References(res.Properties) {
			if _, ok := t.Resources[ref]; ok && ref != name {
				list = append(list, ref)
			}
		}
		for _, dep := range res.DependsOn {
			if _, ok := t.Resources[dep]; ok {
				list = append(list, dep)
			}
		}
		deps[name] = uniqueSorted(list)
	}
	return deps
}

// Order returns resource names in dependency order. Ties are broken
// alphabetically so the order is stable.
func Order(t *infra.Template) ([]string, error) {
	deps := Dependencies(t)

	// Build adjacency list
	graph := make(map[string][]string, len(deps))
	inDegree := make(map[string]int, len(deps))
	for name := range deps {
		inDegree[name] += 0
		for _, dep := range deps[name] {
			graph[dep] = append(graph[dep], name)
			inDegree[name]++
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	result := make([]string, 0, len(deps))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(deps) {
		return nil, detectCycle(deps)
	}
	return result, nil
}

// detectCycle finds and reports one cycle in the dependency graph.
func detectCycle(deps map[string][]string) error {
	visited := make(map[string]bool)
	onPath := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		onPath[node] = true

		for _, dep := range deps[node] {
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if onPath[dep] {
				cycle = []string{dep, node}
				return true
			}
		}

		onPath[node] = false
		return false
	}

	for _, name := range sortedKeys(deps) {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) == 0 {
		return ErrCycle
	}
	return fmt.Errorf("%w: %s", ErrCycle, strings.Join(cycle, " → "))
}

// normalizeProperties serializes a resource value to a property map.
func normalizeProperties(r infra.Resource) (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var props map[string]any
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return nil, nil
	}
	return props, nil
}

// normalize converts an arbitrary value into plain maps, slices and scalars.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// ToJSON serializes the template to JSON.
func ToJSON(t *infra.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *infra.Template) ([]byte, error) {
	return yaml.Marshal(t)
}

// FromJSON parses a JSON template.
func FromJSON(data []byte) (*infra.Template, error) {
	var t infra.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// FromYAML parses a YAML template. Short-form intrinsic tags (!Ref, !Sub)
// are not supported.
func FromYAML(data []byte) (*infra.Template, error) {
	var t infra.Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
