package storage

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOAdapter implements Storage using MinIO.
type MinIOAdapter struct {
	client *minio.Client
}

// MinIOOptions configures MinIO client initialization.
type MinIOOptions struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	UseSSL       bool
}

func NewMinIO(opts MinIOOptions) (*MinIOAdapter, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}
	return &MinIOAdapter{client: client}, nil
}

func (m *MinIOAdapter) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	size := opts.Size
	if size <= 0 {
		size = -1
	}

	info, err := m.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: opts.ContentType})
	if err != nil {
		return ObjectInfo{}, err
	}

	return ObjectInfo{Bucket: bucket, Key: key, Size: info.Size, ContentType: opts.ContentType}, nil
}

func (m *MinIOAdapter) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	// GetObject is lazy; Stat is the first request that can miss.
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, err
	}

	return obj, ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        stat.Size,
		ContentType: stat.ContentType,
		UpdatedAt:   stat.LastModified,
	}, nil
}

func (m *MinIOAdapter) list(ctx context.Context, bucket, prefix string) <-chan minio.ObjectInfo {
	return m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true})
}

func (m *MinIOAdapter) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for obj := range m.list(ctx, bucket, prefix) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		objects = append(objects, ObjectInfo{
			Bucket:    bucket,
			Key:       obj.Key,
			Size:      obj.Size,
			UpdatedAt: obj.LastModified,
		})
	}
	return objects, nil
}

// DeletePrefix streams the listing straight into RemoveObjects, which
// batches the keys into multi-object delete requests.
func (m *MinIOAdapter) DeletePrefix(ctx context.Context, bucket, prefix string) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		sent    int
		listErr error
	)
	queue := make(chan minio.ObjectInfo)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(queue)
		for obj := range m.list(ctx, bucket, prefix) {
			if obj.Err != nil {
				listErr = obj.Err
				return
			}
			select {
			case queue <- obj:
				sent++
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		failed   int
		firstErr error
	)
	for rerr := range m.client.RemoveObjects(ctx, bucket, queue, minio.RemoveObjectsOptions{}) {
		failed++
		if firstErr == nil {
			firstErr = rerr.Err
		}
	}
	cancel()
	<-done

	if firstErr == nil {
		firstErr = listErr
	}
	return sent - failed, firstErr
}

func (m *MinIOAdapter) Close() error {
	return nil
}
