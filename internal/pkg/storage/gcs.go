package storage

import (
	"context"
	"errors"
	"io"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSAdapter implements Storage using Google Cloud Storage.
type GCSAdapter struct {
	client *gcs.Client
}

// GCSOptions configures GCS client initialization. Client wins over
// ClientOptions when both are set.
type GCSOptions struct {
	Client        *gcs.Client
	ClientOptions []option.ClientOption
}

func NewGCS(ctx context.Context, opts GCSOptions) (*GCSAdapter, error) {
	if opts.Client != nil {
		return &GCSAdapter{client: opts.Client}, nil
	}

	client, err := gcs.NewClient(ctx, opts.ClientOptions...)
	if err != nil {
		return nil, err
	}
	return &GCSAdapter{client: client}, nil
}

func (g *GCSAdapter) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	// DoesNotExist keeps a delivery from silently replacing another one.
	w := g.client.Bucket(bucket).Object(key).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = opts.ContentType

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return ObjectInfo{}, err
	}
	if err := w.Close(); err != nil {
		return ObjectInfo{}, err
	}

	return attrsToInfo(w.Attrs()), nil
}

func (g *GCSAdapter) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	rd, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	return rd, ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        rd.Attrs.Size,
		ContentType: rd.Attrs.ContentType,
		UpdatedAt:   rd.Attrs.LastModified,
	}, nil
}

// each walks the objects under prefix, stopping at the first error from fn.
func (g *GCSAdapter) each(ctx context.Context, bucket, prefix string, fn func(*gcs.ObjectAttrs) error) error {
	q := &gcs.Query{Prefix: prefix}
	if err := q.SetAttrSelection([]string{"Bucket", "Name", "Size", "Updated", "Generation"}); err != nil {
		return err
	}

	it := g.client.Bucket(bucket).Objects(ctx, q)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(attrs); err != nil {
			return err
		}
	}
}

func (g *GCSAdapter) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	err := g.each(ctx, bucket, prefix, func(attrs *gcs.ObjectAttrs) error {
		objects = append(objects, attrsToInfo(attrs))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// DeletePrefix deletes the listed generation of each object, so an object
// rewritten after the listing survives.
func (g *GCSAdapter) DeletePrefix(ctx context.Context, bucket, prefix string) (int, error) {
	b := g.client.Bucket(bucket)
	deleted := 0
	err := g.each(ctx, bucket, prefix, func(attrs *gcs.ObjectAttrs) error {
		err := b.Object(attrs.Name).If(gcs.Conditions{GenerationMatch: attrs.Generation}).Delete(ctx)
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		deleted++
		return nil
	})
	return deleted, err
}

func (g *GCSAdapter) Close() error {
	return g.client.Close()
}

func attrsToInfo(attrs *gcs.ObjectAttrs) ObjectInfo {
	if attrs == nil {
		return ObjectInfo{}
	}
	return ObjectInfo{
		Bucket:      attrs.Bucket,
		Key:         attrs.Name,
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		UpdatedAt:   attrs.Updated,
	}
}
