// Package s3 provides components that store byte streams in S3-compatible
// object storage: s3_upload PUTs to a pre-signed URL, s3_put writes through
// the AWS SDK.
package s3

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/registry"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/vk/flowgrid/modules/http_client"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Component PUTs its "data" stream to the pre-signed "url" it receives.
type Component struct {
	mu          sync.Mutex
	client      *http.Client
	data        typebridge.ByteStream
	url         string
	contentType string
	filename    string
	timeout     time.Duration
}

func (c *Component) Ports() []component.PortDescriptor {
	return []component.PortDescriptor{
		{Name: "data", Direction: component.Input, Type: typebridge.Stream, Mandatory: true},
		{Name: "url", Direction: component.Input, Type: typebridge.String, Mandatory: true, Description: "pre-signed upload URL"},
		{Name: "status", Direction: component.Output, Type: typebridge.String},
	}
}

func (c *Component) SetInput(index int, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch index {
	case 0:
		s, _ := value.(typebridge.ByteStream)
		c.data = s
	case 1:
		s, _ := value.(string)
		c.url = s
	}
	return nil
}

func (c *Component) Initialize(context.Context) error {
	c.mu.Lock()
	c.client = http_client.NewClient(c.timeout)
	c.mu.Unlock()
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

// ContentType picks the upload's Content-Type: the explicit setting, then the
// type registered for the filename's extension, then a generic binary type.
func ContentType(explicit, filename string) string {
	if explicit != "" {
		return explicit
	}
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func (c *Component) Execute(ctx context.Context, r component.Reporter) (component.Outputs, error) {
	c.mu.Lock()
	client, data, url := c.client, c.data, c.url
	contentType := ContentType(c.contentType, c.filename)
	c.mu.Unlock()
	if client == nil {
		return nil, errors.New("upload client is not initialized")
	}
	if data == nil || url == "" {
		return nil, errors.New("data and url are required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, data.NewReader())
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = data.Len()

	r.Log(slog.LevelInfo, "Uploading stream to S3", "size", data.Len(), "contentType", contentType)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute S3 upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("S3 upload failed with status: %s", resp.Status)
	}
	r.Progress(1, 1)
	r.Log(slog.LevelInfo, "Successfully uploaded stream", "status", resp.Status)
	return component.Outputs{0: resp.Status}, nil
}

func (c *Component) Settings() []component.SettingDescriptor {
	return []component.SettingDescriptor{
		{Name: "content_type", Type: cty.String, Default: cty.StringVal(""), Description: "overrides detection from filename"},
		{Name: "filename", Type: cty.String, Default: cty.StringVal(""), Description: "object name used to detect the content type"},
		{Name: "timeout", Type: cty.String, Default: cty.StringVal("5m")},
	}
}

func (c *Component) ApplySetting(name string, v cty.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch name {
	case "content_type":
		c.contentType = v.AsString()
	case "filename":
		c.filename = v.AsString()
	case "timeout":
		d, err := time.ParseDuration(v.AsString())
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		c.timeout = d
	default:
		return fmt.Errorf("unknown setting %q", name)
	}
	return nil
}

// Register registers the component with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent("s3_upload", &registry.RegisteredComponent{
		New:         func() component.Component { return &Component{timeout: 5 * time.Minute} },
		Description: "Uploads a stream to a pre-signed S3 URL.",
	})
	r.RegisterComponent("s3_put", &registry.RegisteredComponent{
		New:         func() component.Component { return newPutComponent() },
		Description: "Writes a stream to an S3 bucket.",
	})
}
