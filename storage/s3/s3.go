// Package s3 implements storage.Provider against Amazon S3 (or any
// S3-compatible endpoint) using aws-sdk-go-v2.
package s3

import (
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/storage"
)

// metadataPrefix is how S3 namespaces user metadata; Provider strips it on
// read and adds it on write so callers deal in plain property keys.
const metadataPrefix = "x-amz-meta-"

// Provider is a storage.Provider backed by an S3-compatible bucket acting
// as one "space" namespace per bucket name passed as spaceID.
type Provider struct {
	client     *awss3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
}

// New builds a Provider from an already-configured S3 client (see
// stores.buildS3, which loads credentials through the aws-sdk default chain).
func New(client *awss3.Client) *Provider {
	return &Provider{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
	}
}

var _ storage.Provider = (*Provider)(nil)

func (p *Provider) SpaceExists(ctx context.Context, spaceID string) (bool, error) {
	_, err := p.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(spaceID)})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (p *Provider) CreateSpace(ctx context.Context, spaceID string) error {
	_, err := p.client.CreateBucket(ctx, &awss3.CreateBucketInput{Bucket: aws.String(spaceID)})
	if err == nil {
		return nil
	}
	var alreadyOwned *types.BucketAlreadyOwnedByYou
	var alreadyExists *types.BucketAlreadyExists
	if asSmithy(err, &alreadyOwned) || asSmithy(err, &alreadyExists) {
		return nil
	}
	return err
}

func (p *Provider) DeleteSpace(ctx context.Context, spaceID string) error {
	_, err := p.client.DeleteBucket(ctx, &awss3.DeleteBucketInput{Bucket: aws.String(spaceID)})
	return err
}

func (p *Provider) SpaceEmpty(ctx context.Context, spaceID string) (bool, error) {
	out, err := p.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{Bucket: aws.String(spaceID), MaxKeys: aws.Int32(1)})
	if err != nil {
		return false, err
	}
	return len(out.Contents) == 0, nil
}

func (p *Provider) ListSpaceChunk(ctx context.Context, spaceID, marker string, limit int) ([]string, error) {
	out, err := p.client.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
		Bucket:     aws.String(spaceID),
		StartAfter: aws.String(marker),
		MaxKeys:    aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.Contents))
	for _, o := range out.Contents {
		ids = append(ids, aws.ToString(o.Key))
	}
	return ids, nil
}

func (p *Provider) ListSpace(ctx context.Context, spaceID string, cb func(string) error) error {
	paginator := awss3.NewListObjectsV2Paginator(p.client, &awss3.ListObjectsV2Input{Bucket: aws.String(spaceID)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, o := range page.Contents {
			if err := cb(aws.ToString(o.Key)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Provider) GetContentProperties(ctx context.Context, spaceID, contentID string) (map[string]string, error) {
	out, err := p.client.HeadObject(ctx, &awss3.HeadObjectInput{Bucket: aws.String(spaceID), Key: aws.String(contentID)})
	if err != nil {
		if isNotFound(err) {
			return nil, cmn.ErrNotFound
		}
		return nil, err
	}
	props := make(map[string]string, len(out.Metadata)+2)
	for k, v := range out.Metadata {
		props[strings.ToLower(k)] = v
	}
	if out.ETag != nil {
		props["content-checksum"] = strings.Trim(*out.ETag, `"`)
	}
	if out.ContentType != nil {
		props["content-mimetype"] = *out.ContentType
	}
	return props, nil
}

func (p *Provider) GetContent(ctx context.Context, spaceID, contentID string) (io.ReadCloser, error) {
	out, err := p.client.GetObject(ctx, &awss3.GetObjectInput{Bucket: aws.String(spaceID), Key: aws.String(contentID)})
	if err != nil {
		if isNotFound(err) {
			return nil, cmn.ErrNotFound
		}
		return nil, err
	}
	return out.Body, nil
}

func (p *Provider) PutContent(ctx context.Context, spaceID, contentID, mimetype string, props map[string]string, length int64, _ string, r io.Reader) (string, error) {
	meta := make(map[string]string, len(props))
	for k, v := range props {
		if k == "content-checksum" || k == "content-mimetype" {
			continue
		}
		meta[k] = v
	}
	input := &awss3.PutObjectInput{
		Bucket:        aws.String(spaceID),
		Key:           aws.String(contentID),
		Body:          r,
		ContentLength: aws.Int64(length),
		Metadata:      meta,
	}
	if mimetype != "" {
		input.ContentType = aws.String(mimetype)
	}
	out, err := p.uploader.Upload(ctx, input)
	if err != nil {
		return "", err
	}
	if out.ETag != nil {
		return strings.Trim(*out.ETag, `"`), nil
	}
	return "", nil
}

// SetContentProperties rewrites contentID's metadata in place via a
// same-object CopyObject with MetadataDirective=REPLACE, so property drift
// never costs a re-upload of the content itself.
func (p *Provider) SetContentProperties(ctx context.Context, spaceID, contentID string, props map[string]string) error {
	meta := make(map[string]string, len(props))
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
		meta[k] = v
	}
	input := &awss3.CopyObjectInput{
		Bucket:            aws.String(spaceID),
		Key:               aws.String(contentID),
		CopySource:        aws.String(spaceID + "/" + contentID),
		Metadata:          meta,
		MetadataDirective: types.MetadataDirectiveReplace,
	}
	if mimetype != nil {
		input.ContentType = mimetype
	}
	_, err := p.client.CopyObject(ctx, input)
	if isNotFound(err) {
		return cmn.ErrNotFound
	}
	return err
}

func (p *Provider) DeleteContent(ctx context.Context, spaceID, contentID string) error {
	_, err := p.client.DeleteObject(ctx, &awss3.DeleteObjectInput{Bucket: aws.String(spaceID), Key: aws.String(contentID)})
	if isNotFound(err) {
		return cmn.ErrNotFound
	}
	return err
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nsk *types.NoSuchKey
	var nsb *types.NoSuchBucket
	if asSmithy(err, &nsk) || asSmithy(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if asSmithy(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey", "NoSuchBucket":
			return true
		}
	}
	return false
}
