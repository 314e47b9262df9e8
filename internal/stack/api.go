package stack

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/jeffrosenberg/random-notion-infra/internal/template"
	"github.com/jeffrosenberg/random-notion-infra/intrinsics"
	"github.com/jeffrosenberg/random-notion-infra/resources/apigatewayv2"
	"github.com/jeffrosenberg/random-notion-infra/resources/lambda"
)

// Methods accepted by AddRoute. ANY matches every method.
var Methods = []string{"ANY", "DELETE", "GET", "HEAD", "OPTIONS", "PATCH", "POST", "PUT"}

// HttpAPI is an API Gateway HTTP API with a single auto-deployed $default
// stage.
type HttpAPI struct {
	ID     string
	routes map[string]bool
	// integrations holds one proxy integration per function.
	integrations map[string]string
}

// Route is a route of an HttpAPI.
type Route struct {
	ID       string
	Method   string
	Path     string
	Function *Function
}

// Key returns the API Gateway route key, e.g. "GET /".
func (r *Route) Key() string {
	return r.Method + " " + r.Path
}

// NewHttpAPI declares an HTTP API named name.
func NewHttpAPI(s *Stack, id string, name any) *HttpAPI {
	a := &HttpAPI{ID: id, routes: make(map[string]bool), integrations: make(map[string]string)}

	s.add(func(b *template.Builder) error {
		if err := b.AddResource(a.ID, apigatewayv2.Api{
			Name:         name,
			ProtocolType: apigatewayv2.ProtocolHTTP,
		}); err != nil {
			return err
		}
		return b.AddResource(a.StageID(), apigatewayv2.Stage{
			ApiId:      a.Ref(),
			StageName:  apigatewayv2.DefaultStageName,
			AutoDeploy: true,
		})
	})
	return a
}

// Ref returns the API ID.
func (a *HttpAPI) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: a.ID}
}

// StageID is the logical ID of the $default stage.
func (a *HttpAPI) StageID() string {
	return a.ID + "DefaultStage"
}

// URL returns the invoke URL of the $default stage.
func (a *HttpAPI) URL() intrinsics.Sub {
	return intrinsics.Sub{String: "https://${" + a.ID + "}.execute-api.${AWS::Region}.${AWS::URLSuffix}/"}
}

// AddRoute proxies method requests on path to fn. Each function gets one
// Lambda proxy integration (payload format 2.0) shared by its routes, and
// each route an invoke permission scoped to it.
func (a *HttpAPI) AddRoute(s *Stack, method, path string, fn *Function) (*Route, error) {
	method = strings.ToUpper(method)
	if !validMethod(method) {
		return nil, fmt.Errorf("unsupported route method %q", method)
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("route path %q must start with /", path)
	}

	r := &Route{Method: method, Path: path, Function: fn}
	if a.routes[r.Key()] {
		return nil, fmt.Errorf("route %q already defined", r.Key())
	}
	a.routes[r.Key()] = true
	r.ID = a.ID + routeSuffix(method, path) + "Route"

	integrationID, exists := a.integrations[fn.ID]
	if !exists {
		integrationID = a.ID + fn.ID + "Integration"
		a.integrations[fn.ID] = integrationID
		s.add(func(b *template.Builder) error {
			return b.AddResource(integrationID, apigatewayv2.Integration{
				ApiId:                a.Ref(),
				IntegrationType:      apigatewayv2.IntegrationAWSProxy,
				IntegrationUri:       fn.Arn(),
				PayloadFormatVersion: apigatewayv2.PayloadFormatVersion20,
			})
		})
	}

	s.add(func(b *template.Builder) error {
		if err := b.AddResource(r.ID, apigatewayv2.Route{
			ApiId:             a.Ref(),
			RouteKey:          r.Key(),
			AuthorizationType: "NONE",
			Target: intrinsics.Join{Delimiter: "", Values: []any{
				"integrations/", intrinsics.Ref{LogicalName: integrationID},
			}},
		}); err != nil {
			return err
		}
		return b.AddResource(r.ID+"Permission", lambda.Permission{
			Action:       "lambda:InvokeFunction",
			FunctionName: fn.Arn(),
			Principal:    "apigateway.amazonaws.com",
			SourceArn:    intrinsics.Sub{String: a.sourceArn(method, path)},
		})
	})
	return r, nil
}

// sourceArn scopes an invoke permission to one route on any stage.
func (a *HttpAPI) sourceArn(method, path string) string {
	if method == "ANY" {
		method = "*"
	}
	return "arn:${AWS::Partition}:execute-api:${AWS::Region}:${AWS::AccountId}:${" + a.ID + "}/*/" + method + path
}

func validMethod(method string) bool {
	for _, m := range Methods {
		if m == method {
			return true
		}
	}
	return false
}

// routeSuffix turns a route into a logical ID fragment: GET / becomes "GET",
// GET /items/{id} becomes "GETItemsId".
func routeSuffix(method, path string) string {
	var sb strings.Builder
	sb.WriteString(method)
	upper := true
	for _, c := range path {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			if upper {
				c = unicode.ToUpper(c)
				upper = false
			}
			sb.WriteRune(c)
			continue
		}
		upper = true
	}
	return sb.String()
}
