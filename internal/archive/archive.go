// Package archive keeps the PDF produced for each submitted report.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrNotFound = errors.New("artifact not found")

type Archive interface {
	Put(ctx context.Context, reportID string, pdf []byte) error
	Get(ctx context.Context, reportID string) ([]byte, error)
}

func objectName(reportID string) string {
	return "reports/" + reportID + ".pdf"
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Region skips the bucket location lookup when set.
	Region string
}

// Minio stores artifacts in an S3-compatible bucket.
type Minio struct {
	client *minio.Client
	bucket string
}

func NewMinio(cfg MinioConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (m *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	return nil
}

func (m *Minio) Put(ctx context.Context, reportID string, pdf []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName(reportID), bytes.NewReader(pdf), int64(len(pdf)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", reportID, err)
	}
	return nil
}

func (m *Minio) Get(ctx context.Context, reportID string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, objectName(reportID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get artifact %s: %w", reportID, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read artifact %s: %w", reportID, err)
	}
	return data, nil
}

// Memory is an in-process Archive.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, reportID string, pdf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[reportID] = append([]byte(nil), pdf...)
	return nil
}

func (m *Memory) Get(_ context.Context, reportID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.items[reportID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}
