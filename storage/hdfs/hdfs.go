// Package hdfs implements storage.Provider against an HDFS namenode,
// demonstrating the same interface over a directory-shaped, non-object-store
// backend: a "space" is a top-level directory, and "content ids" are
// relative file paths within it.
package hdfs

import (
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/colinmarc/hdfs/v2"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/storage"
)

// Provider is a storage.Provider backed by an HDFS client, rooted at root
// (e.g. "/duplication-mill") under which every space is one subdirectory.
type Provider struct {
	client *hdfs.Client
	root   string
}

// New builds a Provider from an already-connected HDFS client.
func New(client *hdfs.Client, root string) *Provider {
	return &Provider{client: client, root: root}
}

var _ storage.Provider = (*Provider)(nil)

func (p *Provider) spaceDir(spaceID string) string { return path.Join(p.root, spaceID) }
func (p *Provider) contentPath(spaceID, contentID string) string {
	return path.Join(p.spaceDir(spaceID), contentID)
}

func (p *Provider) SpaceExists(_ context.Context, spaceID string) (bool, error) {
	_, err := p.client.Stat(p.spaceDir(spaceID))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (p *Provider) CreateSpace(_ context.Context, spaceID string) error {
	if err := p.client.MkdirAll(p.spaceDir(spaceID), 0o755); err != nil && !os.IsExist(err) {
		return err
	}
	return nil
}

func (p *Provider) DeleteSpace(_ context.Context, spaceID string) error {
	return p.client.RemoveAll(p.spaceDir(spaceID))
}

func (p *Provider) SpaceEmpty(_ context.Context, spaceID string) (bool, error) {
	entries, err := p.client.ReadDir(p.spaceDir(spaceID))
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

func (p *Provider) listAll(spaceID string) ([]string, error) {
	entries, err := p.client.ReadDir(p.spaceDir(spaceID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasSuffix(name, ".props") || strings.HasSuffix(name, ".props.tmp") {
			continue // property sidecars are not content
		}
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids, nil
}

func (p *Provider) ListSpaceChunk(_ context.Context, spaceID, marker string, limit int) ([]string, error) {
	ids, err := p.listAll(spaceID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, limit)
	for _, id := range ids {
		if marker != "" && id <= marker {
			continue
		}
		out = append(out, id)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (p *Provider) ListSpace(ctx context.Context, spaceID string, cb func(string) error) error {
	return storage.PageAll(ctx, func(ctx context.Context, marker string, limit int) ([]string, error) {
		return p.ListSpaceChunk(ctx, spaceID, marker, limit)
	}, cb)
}

// GetContentProperties has no native xattr-backed property store on this
// client; properties are read from a sidecar "<contentID>.props" file
// written by PutContent and rewritten by SetContentProperties.
func (p *Provider) GetContentProperties(_ context.Context, spaceID, contentID string) (map[string]string, error) {
	f, err := p.client.Open(p.contentPath(spaceID, contentID) + ".props")
	if os.IsNotExist(err) {
		return nil, cmn.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeProps(f)
}

func (p *Provider) GetContent(_ context.Context, spaceID, contentID string) (io.ReadCloser, error) {
	f, err := p.client.Open(p.contentPath(spaceID, contentID))
	if os.IsNotExist(err) {
		return nil, cmn.ErrNotFound
	}
	return f, err
}

func (p *Provider) PutContent(_ context.Context, spaceID, contentID, mimetype string, props map[string]string, _ int64, _ string, r io.Reader) (string, error) {
	w, err := p.client.Create(p.contentPath(spaceID, contentID))
	if err != nil {
		return "", err
	}
	hw := newHashingWriter(w)
	if _, err := io.Copy(hw, r); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	checksum := hw.Sum()

	merged := make(map[string]string, len(props)+2)
	for k, v := range props {
		merged[k] = v
	}
	merged["content-checksum"] = checksum
	if mimetype != "" {
		merged["content-mimetype"] = mimetype
	}
	pw, err := p.client.Create(p.contentPath(spaceID, contentID) + ".props")
	if err != nil {
		return "", err
	}
	if err := encodeProps(pw, merged); err != nil {
		_ = pw.Close()
		return "", err
	}
	if err := pw.Close(); err != nil {
		return "", err
	}
	return checksum, nil
}

// SetContentProperties rewrites contentID's ".props" sidecar (write to a
// temp file, then rename), keeping the existing content-checksum over any
// value in props, since checksums are derived from content at PutContent
// time only.
func (p *Provider) SetContentProperties(ctx context.Context, spaceID, contentID string, props map[string]string) error {
	existing, err := p.GetContentProperties(ctx, spaceID, contentID)
	if err != nil {
		return err
	}
	merged := make(map[string]string, len(props)+1)
	for k, v := range props {
		merged[k] = v
	}
	if v, ok := existing["content-checksum"]; ok {
		merged["content-checksum"] = v
	}
	pw, err := p.client.Create(p.contentPath(spaceID, contentID) + ".props.tmp")
	if err != nil {
		return err
	}
	if err := encodeProps(pw, merged); err != nil {
		_ = pw.Close()
		return err
	}
	if err := pw.Close(); err != nil {
		return err
	}
	return p.client.Rename(p.contentPath(spaceID, contentID)+".props.tmp", p.contentPath(spaceID, contentID)+".props")
}

func (p *Provider) DeleteContent(_ context.Context, spaceID, contentID string) error {
	err := p.client.Remove(p.contentPath(spaceID, contentID))
	if os.IsNotExist(err) {
		return cmn.ErrNotFound
	}
	if err != nil {
		return err
	}
	_ = p.client.Remove(p.contentPath(spaceID, contentID) + ".props")
	return nil
}
