package file

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shandysiswandi/stepup/internal/pkg/config"
	"github.com/shandysiswandi/stepup/internal/pkg/instrument"
	"github.com/shandysiswandi/stepup/internal/pkg/storage"
	"github.com/shandysiswandi/stepup/internal/shared/delivery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// File keeps one object per delivered code under <prefix>/<username>/.
type File struct {
	store storage.Storage
	cfg   config.Config
	ins   instrument.Instrumentation
}

func New(store storage.Storage, cfg config.Config, ins instrument.Instrumentation) *File {
	return &File{store: store, cfg: cfg, ins: ins}
}

func (f *File) Append(ctx context.Context, username string, at time.Time, line string) (key string, err error) {
	ctx, span := f.ins.Tracer("notification.outbound.file").Start(ctx, "Append")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	bucket := f.cfg.GetString("notification.file.bucket")
	key = delivery.FilePrefix(f.cfg.GetString("notification.file.prefix"), username) + strconv.FormatInt(at.UnixNano(), 10) + ".txt"
	span.SetAttributes(attribute.String("storage.bucket", bucket), attribute.String("storage.key", key))

	if _, err := f.store.PutObject(ctx, bucket, key, strings.NewReader(line), storage.PutOptions{
		Size:        int64(len(line)),
		ContentType: "text/plain; charset=utf-8",
	}); err != nil {
		return "", err
	}

	return key, nil
}
