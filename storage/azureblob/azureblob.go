// Package azureblob implements storage.Provider against Azure Blob Storage.
// Each "space" maps to a container.
package azureblob

import (
	"context"
	"encoding/hex"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/storage"
)

// Provider is a storage.Provider backed by an Azure Blob service client.
type Provider struct {
	client *service.Client
}

// New builds a Provider from an already-configured service client (see
// stores.buildAzure, which uses a shared-key credential from the config).
func New(client *service.Client) *Provider {
	return &Provider{client: client}
}

var _ storage.Provider = (*Provider)(nil)

func (p *Provider) containerClient(spaceID string) *container.Client {
	return p.client.NewContainerClient(spaceID)
}

func (p *Provider) SpaceExists(ctx context.Context, spaceID string) (bool, error) {
	pager := p.client.NewListContainersPager(&service.ListContainersOptions{Prefix: &spaceID})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return false, err
		}
		for _, c := range page.ContainerItems {
			if c.Name != nil && *c.Name == spaceID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (p *Provider) CreateSpace(ctx context.Context, spaceID string) error {
	_, err := p.containerClient(spaceID).Create(ctx, nil)
	if err != nil && bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil
	}
	return err
}

func (p *Provider) DeleteSpace(ctx context.Context, spaceID string) error {
	_, err := p.containerClient(spaceID).Delete(ctx, nil)
	return err
}

func (p *Provider) SpaceEmpty(ctx context.Context, spaceID string) (bool, error) {
	ids, err := p.ListSpaceChunk(ctx, spaceID, "", 1)
	if err != nil {
		return false, err
	}
	return len(ids) == 0, nil
}

func (p *Provider) ListSpaceChunk(ctx context.Context, spaceID, marker string, limit int) ([]string, error) {
	var out []string
	pager := p.containerClient(spaceID).NewListBlobsFlatPager(nil)
	for pager.More() && len(out) < limit {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, b := range page.Segment.BlobItems {
			if b.Name == nil {
				continue
			}
			if marker != "" && *b.Name <= marker {
				continue
			}
			out = append(out, *b.Name)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (p *Provider) ListSpace(ctx context.Context, spaceID string, cb func(string) error) error {
	return storage.PageAll(ctx, func(ctx context.Context, marker string, limit int) ([]string, error) {
		return p.ListSpaceChunk(ctx, spaceID, marker, limit)
	}, cb)
}

func (p *Provider) GetContentProperties(ctx context.Context, spaceID, contentID string) (map[string]string, error) {
	blob := p.containerClient(spaceID).NewBlobClient(contentID)
	out, err := blob.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, cmn.ErrNotFound
		}
		return nil, err
	}
	props := make(map[string]string, len(out.Metadata)+2)
	for k, v := range out.Metadata {
		if v != nil {
			props[strings.ToLower(k)] = *v
		}
	}
	if out.ContentMD5 != nil {
		props["content-checksum"] = hex.EncodeToString(out.ContentMD5)
	}
	if out.ContentType != nil {
		props["content-mimetype"] = *out.ContentType
	}
	return props, nil
}

func (p *Provider) GetContent(ctx context.Context, spaceID, contentID string) (io.ReadCloser, error) {
	blob := p.containerClient(spaceID).NewBlobClient(contentID)
	out, err := blob.DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, cmn.ErrNotFound
		}
		return nil, err
	}
	return out.Body, nil
}

func (p *Provider) PutContent(ctx context.Context, spaceID, contentID, mimetype string, props map[string]string, length int64, _ string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	meta := make(map[string]*string, len(props))
	for k, v := range props {
		if k == "content-checksum" || k == "content-mimetype" {
			continue
		}
		val := v
		meta[k] = &val
	}
	blob := p.containerClient(spaceID).NewBlockBlobClient(contentID)
	opts := &azblob.UploadBufferOptions{Metadata: meta}
	if mimetype != "" {
		opts.HTTPHeaders = &blobHTTPHeaders(mimetype)
	}
	out, err := blob.UploadBuffer(ctx, data, opts)
	if err != nil {
		return "", err
	}
	if out.ContentMD5 != nil {
		return hex.EncodeToString(out.ContentMD5), nil
	}
	return "", nil
}

func blobHTTPHeaders(mimetype string) azblob.BlobHTTPHeaders {
	return azblob.BlobHTTPHeaders{BlobContentType: &mimetype}
}

// SetContentProperties updates contentID's metadata and content-type in
// place via SetMetadata/SetHTTPHeaders, without re-uploading the blob.
func (p *Provider) SetContentProperties(ctx context.Context, spaceID, contentID string, props map[string]string) error {
	blob := p.containerClient(spaceID).NewBlobClient(contentID)
	meta := make(map[string]*string, len(props))
	var mimetype *string
	for k, v := range props {
		if k == "content-checksum" {
			continue
		}
		if k == "content-mimetype" {
			m := v
			mimetype = &m
			continue
		}
		val := v
		meta[k] = &val
	}
	if _, err := blob.SetMetadata(ctx, meta, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return cmn.ErrNotFound
		}
		return err
	}
	if mimetype != nil {
		if _, err := blob.SetHTTPHeaders(ctx, azblob.BlobHTTPHeaders{BlobContentType: mimetype}, nil); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) DeleteContent(ctx context.Context, spaceID, contentID string) error {
	blob := p.containerClient(spaceID).NewBlobClient(contentID)
	_, err := blob.Delete(ctx, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return cmn.ErrNotFound
	}
	return err
}
