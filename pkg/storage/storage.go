package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"quiz_backend/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Provider stores archive objects such as AI evaluation transcripts.
type Provider interface {
	Upload(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, name string) error
	GetURL(name string) string
}

// PutBytes uploads an in-memory object.
func PutBytes(ctx context.Context, p Provider, name string, data []byte, contentType string) (string, error) {
	return p.Upload(ctx, name, bytes.NewReader(data), int64(len(data)), contentType)
}

// New picks the provider named by cfg.Type.
func New(cfg *config.StorageConfig) (Provider, error) {
	switch cfg.Type {
	case "minio":
		return NewMinioProvider(cfg)
	default:
		return &LocalProvider{Root: cfg.LocalPath}, nil
	}
}

type LocalProvider struct {
	Root string
}

func (p *LocalProvider) Upload(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error) {
	dst := filepath.Join(p.Root, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.GetURL(name), nil
}

func (p *LocalProvider) Delete(ctx context.Context, name string) error {
	return os.Remove(filepath.Join(p.Root, name))
}

func (p *LocalProvider) GetURL(name string) string {
	return "/archive/" + filepath.ToSlash(name)
}

type MinioProvider struct {
	Bucket string
	Client *minio.Client
}

func NewMinioProvider(cfg *config.StorageConfig) (*MinioProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioProvider{Bucket: cfg.MinioBucket, Client: client}, nil
}

func (p *MinioProvider) Upload(ctx context.Context, name string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, name, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(name), nil
}

func (p *MinioProvider) Delete(ctx context.Context, name string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, name, minio.RemoveObjectOptions{})
}

func (p *MinioProvider) GetURL(name string) string {
	return "/" + p.Bucket + "/" + name
}
