// Package http_client provides a component that performs an HTTP request
// for every URL it receives and streams back the response body.
package http_client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/time/rate"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// StatusError is returned when fail_on_status is set and the server answers
// outside the 2xx range.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status: %s", e.Status)
}

// Component owns one *http.Client from Initialize to Dispose.
type Component struct {
	mu           sync.Mutex
	client       *http.Client
	url          string
	body         typebridge.ByteStream
	method       string
	contentType  string
	timeout      time.Duration
	failOnStatus bool
	rateLimit    float64
	burst        int
	limiter      *rate.Limiter
}

func newComponent() *Component {
	return &Component{method: http.MethodGet, timeout: 30 * time.Second, failOnStatus: true, burst: 1}
}

func (c *Component) Ports() []component.PortDescriptor {
	return []component.PortDescriptor{
		{Name: "url", Direction: component.Input, Type: typebridge.String, Mandatory: true},
		{Name: "payload", Direction: component.Input, Type: typebridge.Stream, Description: "request body"},
		{Name: "status", Direction: component.Output, Type: typebridge.Int32},
		{Name: "response", Direction: component.Output, Type: typebridge.Stream, Description: "response body"},
	}
}

func (c *Component) SetInput(index int, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch index {
	case 0:
		s, _ := value.(string)
		c.url = s
	case 1:
		s, _ := value.(typebridge.ByteStream)
		c.body = s
	}
	return nil
}

func (c *Component) Initialize(context.Context) error {
	c.mu.Lock()
	c.client = NewClient(c.timeout)
	c.mu.Unlock()
	return nil
}

// PreExecution starts every run with a full token bucket.
func (c *Component) PreExecution(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = nil
	if c.rateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.rateLimit), c.burst)
	}
	return nil
}

func (c *Component) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		c.client.CloseIdleConnections()
		c.client = nil
	}
	return nil
}

func (c *Component) Execute(ctx context.Context, r component.Reporter) (component.Outputs, error) {
	c.mu.Lock()
	client, url, body, method, contentType, failOnStatus := c.client, c.url, c.body, c.method, c.contentType, c.failOnStatus
	limiter := c.limiter
	c.mu.Unlock()
	if client == nil {
		return nil, errors.New("http client is not initialized")
	}
	if url == "" {
		return nil, errors.New("url is empty")
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = body.NewReader()
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.ContentLength = body.Len()
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	r.Log(slog.LevelInfo, "Making HTTP request", "method", method, "url", url)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	r.Log(slog.LevelInfo, "Received HTTP response", "status", resp.Status)

	data, err := readBody(resp, r)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if failOnStatus && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return component.Outputs{0: int32(resp.StatusCode), 1: typebridge.NewMemoryStream(data)}, nil
}

// readBody reports progress against Content-Length when the server sends one.
func readBody(resp *http.Response, r component.Reporter) ([]byte, error) {
	if resp.ContentLength <= 0 {
		return io.ReadAll(resp.Body)
	}
	total := float64(resp.ContentLength)
	data := make([]byte, 0, min(resp.ContentLength, 1<<20))
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		data = append(data, buf[:n]...)
		r.Progress(float64(len(data)), total)
		if errors.Is(err, io.EOF) {
			return data, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (c *Component) Settings() []component.SettingDescriptor {
	return []component.SettingDescriptor{
		{Name: "method", Type: cty.String, Default: cty.StringVal(http.MethodGet)},
		{Name: "content_type", Type: cty.String, Default: cty.StringVal(""), Description: "Content-Type sent with a request body"},
		{Name: "timeout", Type: cty.String, Default: cty.StringVal("30s"), Description: "applies from the next initialization"},
		{Name: "fail_on_status", Type: cty.Bool, Default: cty.True, Description: "fail on responses outside 2xx"},
		{Name: "rate_limit", Type: cty.Number, Default: cty.Zero, Description: "requests per second per run; 0 is unlimited"},
		{Name: "burst", Type: cty.Number, Default: cty.NumberIntVal(1)},
	}
}

func (c *Component) ApplySetting(name string, v cty.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch name {
	case "method":
		m := strings.ToUpper(v.AsString())
		if m == "" {
			return errors.New("method cannot be empty")
		}
		c.method = m
	case "content_type":
		c.contentType = v.AsString()
	case "timeout":
		d, err := time.ParseDuration(v.AsString())
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		c.timeout = d
	case "fail_on_status":
		c.failOnStatus = v.True()
	case "rate_limit":
		f, _ := v.AsBigFloat().Float64()
		if f < 0 {
			return fmt.Errorf("rate_limit cannot be negative, got %v", f)
		}
		c.rateLimit = f
	case "burst":
		n, acc := v.AsBigFloat().Int64()
		if acc != big.Exact || n < 1 {
			return fmt.Errorf("burst must be a positive whole number, got %s", v.AsBigFloat().Text('g', -1))
		}
		c.burst = int(n)
	default:
		return fmt.Errorf("unknown setting %q", name)
	}
	return nil
}

// Register registers the component with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("http_request", &registry.RegisteredComponent{
		New:         func() component.Component { return newComponent() },
		Description: "Performs an HTTP request per received URL.",
	})
}
