package storage

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data []byte
	info ObjectInfo
}

// Memory implements Storage in process memory.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject)}
}

func memoryKey(bucket, key string) string {
	return bucket + "\x00" + key
}

func (m *Memory) PutObject(ctx context.Context, bucket, key string, r io.Reader, opts PutOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return ObjectInfo{}, err
	}

	info := ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		Size:        int64(len(data)),
		ContentType: opts.ContentType,
		UpdatedAt:   time.Now(),
	}

	m.mu.Lock()
	m.objects[memoryKey(bucket, key)] = memoryObject{data: data, info: info}
	m.mu.Unlock()

	return info, nil
}

func (m *Memory) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}

	m.mu.RLock()
	obj, ok := m.objects[memoryKey(bucket, key)]
	m.mu.RUnlock()
	if !ok {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

func (m *Memory) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	var objects []ObjectInfo
	for _, obj := range m.objects {
		if obj.info.Bucket == bucket && strings.HasPrefix(obj.info.Key, prefix) {
			objects = append(objects, obj.info)
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(objects, func(a, b ObjectInfo) int { return strings.Compare(a.Key, b.Key) })
	return objects, nil
}

func (m *Memory) DeletePrefix(ctx context.Context, bucket, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for k, obj := range m.objects {
		if obj.info.Bucket == bucket && strings.HasPrefix(obj.info.Key, prefix) {
			delete(m.objects, k)
			deleted++
		}
	}
	return deleted, nil
}

func (m *Memory) Close() error { return nil }
