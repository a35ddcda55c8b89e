package upload

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// Artifact names under each submission directory.
const (
	SourceObject  = "source.py"
	VerdictObject = "verdict.json"
)

// Archiver writes a submission's source and verdict under
// <submission_id>/ in the provider.
type Archiver struct {
	provider Provider
	compress bool
	log      *zap.Logger
}

// NewArchiver wraps provider. With compress set, objects are gzipped and
// stored with a .gz suffix.
func NewArchiver(provider Provider, compress bool, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{provider: provider, compress: compress, log: log}
}

// Archive uploads both artifacts and returns their remote paths. It stops at
// the first failure.
func (a *Archiver) Archive(ctx context.Context, submissionID string, source, verdict []byte) ([]string, error) {
	if submissionID == "" {
		return nil, fmt.Errorf("archive: submission id is required")
	}

	items := []struct {
		name        string
		data        []byte
		contentType string
	}{
		{SourceObject, source, "text/x-python"},
		{VerdictObject, verdict, "application/json"},
	}

	paths := make([]string, 0, len(items))
	for _, it := range items {
		obj, err := a.object(path.Join(submissionID, it.name), it.data, it.contentType)
		if err != nil {
			return paths, err
		}
		if err := a.provider.Upload(ctx, obj); err != nil {
			return paths, err
		}
		a.log.Debug("artifact uploaded", zap.String("provider", a.provider.Name()), zap.String("path", obj.Path), zap.Int64("size", obj.Size))
		paths = append(paths, obj.Path)
	}
	return paths, nil
}

func (a *Archiver) object(p string, data []byte, contentType string) (Object, error) {
	if !a.compress {
		return Object{Path: p, Body: bytes.NewReader(data), Size: int64(len(data)), ContentType: contentType}, nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return Object{}, fmt.Errorf("archive: failed to compress %s: %w", p, err)
	}
	if err := zw.Close(); err != nil {
		return Object{}, fmt.Errorf("archive: failed to compress %s: %w", p, err)
	}
	return Object{
		Path:            p + ".gz",
		Body:            &buf,
		Size:            int64(buf.Len()),
		ContentType:     contentType,
		ContentEncoding: "gzip",
	}, nil
}
