package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// InvocationPath is where the Runtime Interface Emulator accepts invokes.
const InvocationPath = "/2015-03-31/functions/function/invocations"

// Invoker sends an event payload to a function and returns its response.
type Invoker interface {
	Invoke(ctx context.Context, payload []byte) ([]byte, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, payload []byte) ([]byte, error)

// Invoke calls f.
func (f InvokerFunc) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}

// HTTPInvoker invokes a function running under the Runtime Interface Emulator.
type HTTPInvoker struct {
	Endpoint string
	Client   *http.Client
}

// Invoke posts the payload to the emulator.
func (h HTTPInvoker) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	url := strings.TrimSuffix(h.Endpoint, "/") + InvocationPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading invoke response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("invoke returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	if errType := resp.Header.Get("X-Amz-Function-Error"); errType != "" {
		return nil, fmt.Errorf("function error %s: %s", errType, bytes.TrimSpace(body))
	}
	return body, nil
}
