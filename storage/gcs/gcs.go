// Package gcs implements storage.Provider against Google Cloud Storage.
// Each "space" maps to a bucket.
package gcs

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/duplicationmill/core/cmn"
	dupstorage "github.com/duplicationmill/core/storage"
)

// Provider is a storage.Provider backed by a GCS client.
type Provider struct {
	client    *storage.Client
	projectID string
}

// New builds a Provider from an already-configured GCS client (see
// storage/creds for credential loading) and the GCP project that owns
// buckets this Provider creates.
func New(client *storage.Client, projectID string) *Provider {
	return &Provider{client: client, projectID: projectID}
}

var _ dupstorage.Provider = (*Provider)(nil)

func (p *Provider) bucket(spaceID string) *storage.BucketHandle {
	return p.client.Bucket(spaceID)
}

func (p *Provider) SpaceExists(ctx context.Context, spaceID string) (bool, error) {
	_, err := p.bucket(spaceID).Attrs(ctx)
	if errors.Is(err, storage.ErrBucketNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) CreateSpace(ctx context.Context, spaceID string) error {
	err := p.bucket(spaceID).Create(ctx, p.projectID, nil)
	if err == nil {
		return nil
	}
	exists, existsErr := p.SpaceExists(ctx, spaceID)
	if existsErr == nil && exists {
		return nil
	}
	return err
}

func (p *Provider) DeleteSpace(ctx context.Context, spaceID string) error {
	return p.bucket(spaceID).Delete(ctx)
}

func (p *Provider) SpaceEmpty(ctx context.Context, spaceID string) (bool, error) {
	ids, err := p.ListSpaceChunk(ctx, spaceID, "", 1)
	if err != nil {
		return false, err
	}
	return len(ids) == 0, nil
}

func (p *Provider) ListSpaceChunk(ctx context.Context, spaceID, marker string, limit int) ([]string, error) {
	it := p.bucket(spaceID).Objects(ctx, &storage.Query{StartOffset: marker})
	out := make([]string, 0, limit)
	for len(out) < limit {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if attrs.Name == marker {
			continue // StartOffset is inclusive; marker itself is exclusive here
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (p *Provider) ListSpace(ctx context.Context, spaceID string, cb func(string) error) error {
	it := p.bucket(spaceID).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := cb(attrs.Name); err != nil {
			return err
		}
	}
}

func (p *Provider) GetContentProperties(ctx context.Context, spaceID, contentID string) (map[string]string, error) {
	attrs, err := p.bucket(spaceID).Object(contentID).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, cmn.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	props := make(map[string]string, len(attrs.Metadata)+2)
	for k, v := range attrs.Metadata {
		props[k] = v
	}
	if len(attrs.MD5) > 0 {
		props["content-checksum"] = string(attrs.Etag)
	}
	if attrs.ContentType != "" {
		props["content-mimetype"] = attrs.ContentType
	}
	return props, nil
}

func (p *Provider) GetContent(ctx context.Context, spaceID, contentID string) (io.ReadCloser, error) {
	r, err := p.bucket(spaceID).Object(contentID).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, cmn.ErrNotFound
	}
	return r, err
}

func (p *Provider) PutContent(ctx context.Context, spaceID, contentID, mimetype string, props map[string]string, _ int64, _ string, r io.Reader) (string, error) {
	obj := p.bucket(spaceID).Object(contentID)
	w := obj.NewWriter(ctx)
	w.Metadata = props
	if mimetype != "" {
		w.ContentType = mimetype
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return "", err
	}
	return attrs.Etag, nil
}

// SetContentProperties updates contentID's metadata/content-type in place
// via Object.Update, without re-uploading the object's bytes.
func (p *Provider) SetContentProperties(ctx context.Context, spaceID, contentID string, props map[string]string) error {
	meta := make(map[string]string, len(props))
	update := storage.ObjectAttrsToUpdate{Metadata: meta}
	for k, v := range props {
		if k == "content-checksum" {
			continue
		}
		if k == "content-mimetype" {
			update.ContentType = v
			continue
		}
		meta[k] = v
	}
	_, err := p.bucket(spaceID).Object(contentID).Update(ctx, update)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return cmn.ErrNotFound
	}
	return err
}

func (p *Provider) DeleteContent(ctx context.Context, spaceID, contentID string) error {
	err := p.bucket(spaceID).Object(contentID).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return cmn.ErrNotFound
	}
	return err
}
