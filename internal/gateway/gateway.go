// Package gateway emulates the RandomNotion HTTP API locally.
//
// Requests matching a route from the synthesized template are converted to
// API Gateway payload format 2.0 events and handed to an Invoker, usually a
// function running under the Lambda Runtime Interface Emulator. The
// function's response is written back as API Gateway would. Requests that
// match no route are rejected before any invoke.
package gateway

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// PayloadVersion is the event format sent to the function.
	PayloadVersion = "2.0"
	// LocalApiID stands in for the API ID in request contexts.
	LocalApiID = "local"

	stageName  = "$default"
	timeLayout = "02/Jan/2006:15:04:05 -0700"
)

var (
	// ErrDuplicateRoute is returned when two routes share a key.
	ErrDuplicateRoute = errors.New("duplicate route")
	// ErrMethod is returned for a route with an unsupported method.
	ErrMethod = errors.New("unsupported method")
)

var methods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodPatch: true, http.MethodDelete: true, http.MethodHead: true,
	http.MethodOptions: true, MethodAny: true,
}

var (
	notFoundBody = []byte(`{"message":"Not Found"}`)
	internalBody = []byte(`{"message":"Internal Server Error"}`)
)

// Gateway is an http.Handler serving a set of routes.
type Gateway struct {
	router  chi.Router
	invoker Invoker
	now     func() time.Time
}

// New creates a Gateway for the routes. Every matched request invokes inv.
func New(routes []Route, inv Invoker) (*Gateway, error) {
	g := &Gateway{
		router:  chi.NewRouter(),
		invoker: inv,
		now:     time.Now,
	}

	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Info("no route")
		writeJSON(w, http.StatusNotFound, notFoundBody)
	})
	g.router.NotFound(notFound)
	g.router.MethodNotAllowed(notFound)

	seen := make(map[string]bool)
	for _, route := range routes {
		key := route.Key()
		if seen[key] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRoute, key)
		}
		seen[key] = true

		if route.IsDefault() {
			h := g.handler(route, "")
			g.router.NotFound(h)
			g.router.MethodNotAllowed(h)
			continue
		}
		if !methods[route.Method] {
			return nil, fmt.Errorf("%w: %s", ErrMethod, key)
		}

		pattern, greedy := chiPattern(route.Path)
		h := g.handler(route, greedy)
		if route.Method == MethodAny {
			g.router.Handle(pattern, h)
		} else {
			g.router.Method(route.Method, pattern, h)
		}
	}
	return g, nil
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

func (g *Gateway) handler(route Route, greedy string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := g.now()
		logger := log.WithFields(log.Fields{"route": route.Key(), "path": r.URL.Path})

		event, err := g.event(r, route, greedy)
		if err != nil {
			logger.WithError(err).Warn("reading request")
			writeJSON(w, http.StatusBadRequest, []byte(`{"message":"Bad Request"}`))
			return
		}
		logger = logger.WithField("requestId", event.RequestContext.RequestID)

		payload, err := json.Marshal(event)
		if err != nil {
			logger.WithError(err).Error("encoding event")
			writeJSON(w, http.StatusInternalServerError, internalBody)
			return
		}

		out, err := g.invoker.Invoke(r.Context(), payload)
		if err != nil {
			logger.WithError(err).Error("invoke failed")
			writeJSON(w, http.StatusInternalServerError, internalBody)
			return
		}

		status, err := writeResponse(w, out)
		if err != nil {
			logger.WithError(err).Error("function returned an error")
			writeJSON(w, http.StatusInternalServerError, internalBody)
			return
		}
		logger.WithFields(log.Fields{
			"status":   status,
			"duration": g.now().Sub(start).String(),
		}).Info("request")
	}
}

// event converts r to a payload format 2.0 event.
func (g *Gateway) event(r *http.Request, route Route, greedy string) (events.APIGatewayV2HTTPRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return events.APIGatewayV2HTTPRequest{}, err
	}

	now := g.now()
	e := events.APIGatewayV2HTTPRequest{
		Version:        PayloadVersion,
		RouteKey:       route.Key(),
		RawPath:        r.URL.EscapedPath(),
		RawQueryString: r.URL.RawQuery,
		Headers:        make(map[string]string),
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RouteKey:     route.Key(),
			APIID:        LocalApiID,
			Stage:        stageName,
			RequestID:    uuid.NewString(),
			DomainName:   r.Host,
			DomainPrefix: strings.Split(r.Host, ".")[0],
			Time:         now.Format(timeLayout),
			TimeEpoch:    now.UnixMilli(),
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:    r.Method,
				Path:      r.URL.Path,
				Protocol:  r.Proto,
				SourceIP:  sourceIP(r.RemoteAddr),
				UserAgent: r.UserAgent(),
			},
		},
	}

	for name, values := range r.Header {
		lower := strings.ToLower(name)
		if lower == "cookie" {
			for _, v := range values {
				for _, c := range strings.Split(v, ";") {
					if c = strings.TrimSpace(c); c != "" {
						e.Cookies = append(e.Cookies, c)
					}
				}
			}
			continue
		}
		e.Headers[lower] = strings.Join(values, ",")
	}
	if r.Host != "" {
		e.Headers["host"] = r.Host
	}

	if query, err := url.ParseQuery(r.URL.RawQuery); err == nil && len(query) > 0 {
		e.QueryStringParameters = make(map[string]string, len(query))
		for k, v := range query {
			e.QueryStringParameters[k] = strings.Join(v, ",")
		}
	}

	if rctx := chi.RouteContext(r.Context()); rctx != nil && !route.IsDefault() {
		for i, k := range rctx.URLParams.Keys {
			if k == "*" {
				if greedy == "" {
					continue
				}
				k = greedy
			}
			if e.PathParameters == nil {
				e.PathParameters = make(map[string]string)
			}
			e.PathParameters[k] = rctx.URLParams.Values[i]
		}
	}

	if len(body) > 0 {
		if utf8.Valid(body) {
			e.Body = string(body)
		} else {
			e.Body = base64.StdEncoding.EncodeToString(body)
			e.IsBase64Encoded = true
		}
	}
	return e, nil
}

// writeResponse writes a function's payload 2.0 response. A payload without
// a statusCode is sent as a 200 JSON body. It returns the status written.
func writeResponse(w http.ResponseWriter, payload []byte) (int, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil || probe["statusCode"] == nil {
		if probe["errorMessage"] != nil && probe["errorType"] != nil {
			return 0, fmt.Errorf("%s", payload)
		}
		writeJSON(w, http.StatusOK, payload)
		return http.StatusOK, nil
	}

	var resp events.APIGatewayV2HTTPResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return 0, fmt.Errorf("decoding function response: %w", err)
	}

	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			return 0, fmt.Errorf("decoding response body: %w", err)
		}
		body = decoded
	}

	header := w.Header()
	for k, v := range resp.Headers {
		header.Set(k, v)
	}
	for k, vs := range resp.MultiValueHeaders {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	for _, c := range resp.Cookies {
		header.Add("Set-Cookie", c)
	}

	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write(body)
	return status, nil
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func sourceIP(remoteAddr string) string {
	if i := strings.LastIndex(remoteAddr, ":"); i > 0 {
		return strings.Trim(remoteAddr[:i], "[]")
	}
	return remoteAddr
}
