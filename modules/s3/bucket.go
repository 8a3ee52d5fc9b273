package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/vk/flowgrid/internal/component"
	"github.com/vk/flowgrid/internal/typebridge"
	"github.com/zclconf/go-cty/cty"
)

// BucketConfig selects the bucket and credentials of an s3_put node.
type BucketConfig struct {
	// Endpoint is a full URL for MinIO and other S3-compatible stores.
	// Empty means AWS.
	Endpoint        string
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PathPrefix      string
	PresignExpiry   time.Duration
}

func newBucketClient(ctx context.Context, cfg BucketConfig) (*awss3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*awss3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *awss3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		})
	}
	return awss3.NewFromConfig(awsCfg, s3Opts...), nil
}

// PutComponent stores its "data" stream under the received "key" with the
// AWS SDK and emits the object URI and, optionally, a pre-signed GET URL.
type PutComponent struct {
	mu        sync.Mutex
	cfg       BucketConfig
	client    *awss3.Client
	presigner *awss3.PresignClient
	data      typebridge.ByteStream
	key       string
}

func newPutComponent() *PutComponent {
	return &PutComponent{cfg: BucketConfig{PresignExpiry: 15 * time.Minute}}
}

func (c *PutComponent) Ports() []component.PortDescriptor {
	return []component.PortDescriptor{
		{Name: "data", Direction: component.Input, Type: typebridge.Stream, Mandatory: true},
		{Name: "key", Direction: component.Input, Type: typebridge.String, Mandatory: true, Description: "object key below path_prefix"},
		{Name: "uri", Direction: component.Output, Type: typebridge.String, Description: "s3://bucket/key"},
		{Name: "url", Direction: component.Output, Type: typebridge.String, Description: "pre-signed GET URL"},
	}
}

func (c *PutComponent) SetInput(index int, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch index {
	case 0:
		s, _ := value.(typebridge.ByteStream)
		c.data = s
	case 1:
		s, _ := value.(string)
		c.key = s
	}
	return nil
}

// PreExecution builds the SDK client from the current settings.
func (c *PutComponent) PreExecution(ctx context.Context) error {
	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()
	if cfg.Bucket == "" {
		return errors.New("bucket setting is required")
	}
	client, err := newBucketClient(ctx, cfg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.client, c.presigner = client, awss3.NewPresignClient(client)
	c.mu.Unlock()
	return nil
}

func (c *PutComponent) PostExecution(context.Context) error {
	c.mu.Lock()
	c.client, c.presigner = nil, nil
	c.mu.Unlock()
	return nil
}

// ObjectKey joins prefix and key with a single slash.
func ObjectKey(prefix, key string) string {
	key = strings.TrimLeft(key, "/")
	if prefix == "" {
		return key
	}
	return strings.TrimRight(prefix, "/") + "/" + key
}

func (c *PutComponent) Execute(ctx context.Context, r component.Reporter) (component.Outputs, error) {
	c.mu.Lock()
	client, presigner, cfg, data, key := c.client, c.presigner, c.cfg, c.data, c.key
	c.mu.Unlock()
	if client == nil {
		return nil, errors.New("s3 client is not initialized")
	}
	if data == nil || key == "" {
		return nil, errors.New("data and key are required")
	}

	content, err := io.ReadAll(data.NewReader())
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	fullKey := ObjectKey(cfg.PathPrefix, key)
	contentType := ContentType("", fullKey)

	r.Log(slog.LevelInfo, "Putting object", "bucket", cfg.Bucket, "key", fullKey, "size", len(content))
	_, err = client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(cfg.Bucket),
		Key:           aws.String(fullKey),
		Body:          bytes.NewReader(content),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}
	r.Progress(1, 1)

	out := component.Outputs{0: fmt.Sprintf("s3://%s/%s", cfg.Bucket, fullKey)}
	if cfg.PresignExpiry > 0 {
		req, err := presigner.PresignGetObject(ctx, &awss3.GetObjectInput{
			Bucket: aws.String(cfg.Bucket),
			Key:    aws.String(fullKey),
		}, awss3.WithPresignExpires(cfg.PresignExpiry))
		if err != nil {
			return nil, fmt.Errorf("presign get: %w", err)
		}
		out[1] = req.URL
	}
	return out, nil
}

func (c *PutComponent) Settings() []component.SettingDescriptor {
	return []component.SettingDescriptor{
		{Name: "bucket", Type: cty.String, Default: cty.StringVal("")},
		{Name: "endpoint", Type: cty.String, Default: cty.StringVal(""), Description: "S3-compatible endpoint URL; empty for AWS"},
		{Name: "region", Type: cty.String, Default: cty.StringVal("us-east-1")},
		{Name: "path_prefix", Type: cty.String, Default: cty.StringVal("")},
		{Name: "access_key_id", Type: cty.String, Default: cty.StringVal(""), DontSave: true},
		{Name: "secret_access_key", Type: cty.String, Default: cty.StringVal(""), DontSave: true},
		{Name: "presign_expiry", Type: cty.String, Default: cty.StringVal("15m"), Description: "0 disables the url output"},
	}
}

func (c *PutComponent) ApplySetting(name string, v cty.Value) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch name {
	case "bucket":
		c.cfg.Bucket = v.AsString()
	case "endpoint":
		c.cfg.Endpoint = v.AsString()
	case "region":
		c.cfg.Region = v.AsString()
	case "path_prefix":
		c.cfg.PathPrefix = v.AsString()
	case "access_key_id":
		c.cfg.AccessKeyID = v.AsString()
	case "secret_access_key":
		c.cfg.SecretAccessKey = v.AsString()
	case "presign_expiry":
		d, err := time.ParseDuration(v.AsString())
		if err != nil {
			return err
		}
		if d < 0 {
			return fmt.Errorf("presign_expiry cannot be negative, got %s", d)
		}
		c.cfg.PresignExpiry = d
	default:
		return fmt.Errorf("unknown setting %q", name)
	}
	return nil
}
