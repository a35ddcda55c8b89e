package upload

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioProvider stores objects in a MinIO or S3-compatible bucket.
type MinioProvider struct {
	client   *minio.Client
	bucket   string
	prefix   string
	endpoint string
	secure   bool
}

func NewMinioProvider() *MinioProvider {
	return &MinioProvider{}
}

func (m *MinioProvider) Name() string {
	return "minio"
}

// Configure reads endpoint, access_key, secret_key and bucket (required)
// plus secure, region and prefix. A scheme on the endpoint overrides secure.
func (m *MinioProvider) Configure(config map[string]any) error {
	endpoint, ok := stringValue(config, "endpoint")
	if !ok {
		return fmt.Errorf("minio: endpoint is required")
	}
	accessKey, ok := stringValue(config, "access_key")
	if !ok {
		return fmt.Errorf("minio: access_key is required")
	}
	secretKey, ok := stringValue(config, "secret_key")
	if !ok {
		return fmt.Errorf("minio: secret_key is required")
	}
	bucket, ok := stringValue(config, "bucket")
	if !ok {
		return fmt.Errorf("minio: bucket is required")
	}

	host, secure, err := parseEndpoint(endpoint, boolValue(config, "secure", true))
	if err != nil {
		return err
	}
	region, ok := stringValue(config, "region")
	if !ok {
		region = "us-east-1"
	}
	prefix, _ := stringValue(config, "prefix")

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return fmt.Errorf("minio: failed to create client: %w", err)
	}

	m.client = client
	m.bucket = bucket
	m.prefix = strings.Trim(prefix, "/")
	m.endpoint = host
	m.secure = secure
	return nil
}

// Verify checks that the bucket exists.
func (m *MinioProvider) Verify(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("minio: provider not configured")
	}
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("minio: failed to check bucket existence: %w", err)
	}
	if !exists {
		return fmt.Errorf("minio: bucket %s does not exist", m.bucket)
	}
	return nil
}

func (m *MinioProvider) Upload(ctx context.Context, obj Object) error {
	if m.client == nil {
		return fmt.Errorf("minio: provider not configured")
	}

	name := m.objectName(obj.Path)
	_, err := m.client.PutObject(ctx, m.bucket, name, obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType:     obj.ContentType,
		ContentEncoding: obj.ContentEncoding,
	})
	if err != nil {
		return fmt.Errorf("minio: failed to upload to %s: %w", name, err)
	}
	return nil
}

func (m *MinioProvider) objectName(p string) string {
	if m.prefix == "" {
		return p
	}
	return path.Join(m.prefix, p)
}

// parseEndpoint strips an http(s) scheme and derives the secure flag from
// it. Without a scheme, fallback decides.
func parseEndpoint(endpoint string, fallback bool) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, fallback, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", false, fmt.Errorf("minio: invalid endpoint URL %q", endpoint)
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("minio: invalid endpoint URL %q: unsupported scheme %s", endpoint, u.Scheme)
	}
}

func stringValue(config map[string]any, key string) (string, bool) {
	s, ok := config[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func boolValue(config map[string]any, key string, def bool) bool {
	switch v := config[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
