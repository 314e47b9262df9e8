package template

import (
	"sort"
	"strings"

	infra "github.com/jeffrosenberg/random-notion-infra"
)

// EdgeKind is how one template entry refers to another.
type EdgeKind string

const (
	EdgeRef       EdgeKind = "Ref"
	EdgeGetAtt    EdgeKind = "GetAtt"
	EdgeSub       EdgeKind = "Sub"
	EdgeDependsOn EdgeKind = "DependsOn"
)

// strength orders kinds when one entry refers to another several ways.
var strength = map[EdgeKind]int{EdgeRef: 1, EdgeSub: 2, EdgeGetAtt: 3, EdgeDependsOn: 4}

// Edge is a reference from a resource to a resource or parameter.
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Edges returns every reference between resources, sorted by From then To.
// Parameter references are included when withParameters is set.
func Edges(t *infra.Template, withParameters bool) []Edge {
	var edges []Edge
	for _, name := range sortedKeys(t.Resources) {
		res := t.Resources[name]
		kinds := make(map[string]EdgeKind)
		collectRefs(res.Properties, func(ref string, kind EdgeKind) {
			if strength[kind] > strength[kinds[ref]] {
				kinds[ref] = kind
			}
		})
		for _, dep := range res.DependsOn {
			kinds[dep] = EdgeDependsOn
		}

		for _, ref := range sortedKeys(kinds) {
			_, isResource := t.Resources[ref]
			_, isParam := t.Parameters[ref]
			if ref == name || !(isResource || (withParameters && isParam)) {
				continue
			}
			edges = append(edges, Edge{From: name, To: ref, Kind: kinds[ref]})
		}
	}
	return edges
}

// References returns the sorted logical names referenced by v through Ref,
// Fn::GetAtt or Fn::Sub. Pseudo parameters (AWS::Region, ...) and escaped
// Sub literals (${!Literal}) are skipped, and so are Sub variables supplied
// in the variable map.
func References(v any) []string {
	set := make(map[string]bool)
	collectRefs(v, func(name string, _ EdgeKind) { set[name] = true })

	refs := make([]string, 0, len(set))
	for name := range set {
		refs = append(refs, name)
	}
	sort.Strings(refs)
	return refs
}

func collectRefs(v any, add func(string, EdgeKind)) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if ref, ok := val["Ref"].(string); ok {
				addRef(ref, EdgeRef, add)
				return
			}
			if getAtt, ok := val["Fn::GetAtt"]; ok {
				collectGetAtt(getAtt, add)
				return
			}
			if sub, ok := val["Fn::Sub"]; ok {
				collectSub(sub, add)
				return
			}
		}
		for _, elem := range val {
			collectRefs(elem, add)
		}
	case []any:
		for _, elem := range val {
			collectRefs(elem, add)
		}
	}
}

func collectGetAtt(v any, add func(string, EdgeKind)) {
	switch args := v.(type) {
	case []any:
		if len(args) == 0 {
			return
		}
		if name, ok := args[0].(string); ok {
			addRef(name, EdgeGetAtt, add)
		}
		for _, arg := range args[1:] {
			collectRefs(arg, add)
		}
	case string:
		name, _, _ := strings.Cut(args, ".")
		addRef(name, EdgeGetAtt, add)
	}
}

func collectSub(v any, add func(string, EdgeKind)) {
	switch args := v.(type) {
	case string:
		for _, name := range SubVariables(args) {
			addRef(name, EdgeSub, add)
		}
	case []any:
		if len(args) == 0 {
			return
		}
		vars, _ := args[len(args)-1].(map[string]any)
		if s, ok := args[0].(string); ok {
			for _, name := range SubVariables(s) {
				if _, local := vars[name]; !local {
					addRef(name, EdgeSub, add)
				}
			}
		}
		for _, val := range vars {
			collectRefs(val, add)
		}
	}
}

// SubVariables returns the logical names used as ${Name} or ${Name.Attr}
// in an Fn::Sub string, in order of appearance.
func SubVariables(s string) []string {
	var names []string
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			return names
		}
		s = s[start+2:]
		end := strings.Index(s, "}")
		if end < 0 {
			return names
		}
		expr := s[:end]
		s = s[end+1:]
		if expr == "" || strings.HasPrefix(expr, "!") {
			continue
		}
		name, _, _ := strings.Cut(expr, ".")
		names = append(names, name)
	}
}

func addRef(name string, kind EdgeKind, add func(string, EdgeKind)) {
	if name == "" || strings.HasPrefix(name, "AWS::") {
		return
	}
	add(name, kind)
}
