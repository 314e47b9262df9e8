package gateway

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	infra "github.com/jeffrosenberg/random-notion-infra"
	"github.com/jeffrosenberg/random-notion-infra/resources/apigatewayv2"
)

// DefaultRouteKey matches any request no other route matches.
const DefaultRouteKey = "$default"

// MethodAny matches every HTTP method.
const MethodAny = "ANY"

// ErrRouteKey is returned for a route key that is not "$default" or
// "METHOD /path".
var ErrRouteKey = errors.New("invalid route key")

// Route is one HTTP API route.
type Route struct {
	Method string
	Path   string
}

// Key returns the route key as API Gateway writes it.
func (r Route) Key() string {
	if r.IsDefault() {
		return DefaultRouteKey
	}
	return r.Method + " " + r.Path
}

// IsDefault reports whether r is the catch-all route.
func (r Route) IsDefault() bool {
	return r.Method == "" && r.Path == ""
}

// ParseRouteKey parses "GET /items/{id}" or "$default".
func ParseRouteKey(key string) (Route, error) {
	if key == DefaultRouteKey {
		return Route{}, nil
	}
	method, path, ok := strings.Cut(key, " ")
	if !ok || method == "" || !strings.HasPrefix(path, "/") {
		return Route{}, fmt.Errorf("%w: %q", ErrRouteKey, key)
	}
	return Route{Method: strings.ToUpper(method), Path: path}, nil
}

// RoutesFromTemplate returns the routes of every AWS::ApiGatewayV2::Route
// in the template, sorted by key.
func RoutesFromTemplate(t *infra.Template) ([]Route, error) {
	routeType := apigatewayv2.Route{}.ResourceType()

	var routes []Route
	for name, res := range t.Resources {
		if res.Type != routeType {
			continue
		}
		key, ok := res.Properties["RouteKey"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no RouteKey", ErrRouteKey, name)
		}
		route, err := ParseRouteKey(key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		routes = append(routes, route)
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].Key() < routes[j].Key()
	})
	return routes, nil
}

// chiPattern converts an API Gateway path to a chi pattern. A greedy
// {name+} segment becomes a trailing wildcard.
func chiPattern(path string) (pattern, greedy string) {
	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if strings.HasPrefix(last, "{") && strings.HasSuffix(last, "+}") {
		greedy = strings.TrimSuffix(strings.TrimPrefix(last, "{"), "+}")
		segments[len(segments)-1] = "*"
	}
	return strings.Join(segments, "/"), greedy
}
