// Package stores builds and caches the storage.Provider backends named by
// a StorePolicy's storeId, from a single loaded config.Config. The
// convention is that a storeId is one of the well-known backend names
// ("s3", "azure", "gcs", "hdfs", "http") configured in the property file;
// a deployment that needs more than one store of the same kind runs
// multiple producer/worker processes against distinct config files, which
// keeps this resolver (and the config schema it reads) simple.
package stores

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	azservice "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/colinmarc/hdfs/v2"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	dupconfig "github.com/duplicationmill/core/config"
	dupstorage "github.com/duplicationmill/core/storage"
	"github.com/duplicationmill/core/storage/azureblob"
	"github.com/duplicationmill/core/storage/creds"
	"github.com/duplicationmill/core/storage/gcs"
	duphdfs "github.com/duplicationmill/core/storage/hdfs"
	"github.com/duplicationmill/core/storage/httprest"
	dups3 "github.com/duplicationmill/core/storage/s3"
)

// Resolver lazily constructs and caches one dupstorage.Provider per
// well-known storeId, backed by cfg's per-backend credential sections.
type Resolver struct {
	cfg *dupconfig.Config

	mu    sync.Mutex
	cache map[string]dupstorage.Provider
}

// New returns a Resolver over cfg. Clients (S3, Azure, GCS, HDFS, HTTP) are
// built on first use, not at construction time.
func New(cfg *dupconfig.Config) *Resolver {
	return &Resolver{cfg: cfg, cache: make(map[string]dupstorage.Provider)}
}

// Resolve returns the Provider for storeID, building and caching it on
// first use.
func (r *Resolver) Resolve(storeID string) (dupstorage.Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.cache[storeID]; ok {
		return p, nil
	}
	p, err := r.build(storeID)
	if err != nil {
		return nil, err
	}
	r.cache[storeID] = p
	return p, nil
}

func (r *Resolver) build(storeID string) (dupstorage.Provider, error) {
	switch storeID {
	case "s3":
		return r.buildS3()
	case "azure":
		return r.buildAzure()
	case "gcs":
		return r.buildGCS()
	case "hdfs":
		return r.buildHDFS()
	case "http":
		return httprest.New(r.cfg.HTTP.BaseURL, r.cfg.HTTP.Token), nil
	default:
		return nil, fmt.Errorf("stores: unknown storeId %q", storeID)
	}
}

func (r *Resolver) buildS3() (dupstorage.Provider, error) {
	ctx := context.Background()
	var opts []func(*awsconfig.LoadOptions) error
	if r.cfg.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(r.cfg.S3.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("stores: load aws config: %w", err)
	}
	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if r.cfg.S3.Endpoint != "" {
			o.BaseEndpoint = &r.cfg.S3.Endpoint
		}
		o.UsePathStyle = r.cfg.S3.ForcePathStyle
	})
	return dups3.New(client), nil
}

func (r *Resolver) buildAzure() (dupstorage.Provider, error) {
	cred, err := azblob.NewSharedKeyCredential(r.cfg.Azure.AccountName, r.cfg.Azure.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("stores: azure shared key credential: %w", err)
	}
	endpoint := r.cfg.Azure.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net/", r.cfg.Azure.AccountName)
	}
	client, err := azservice.NewClientWithSharedKeyCredential(endpoint, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("stores: azure client: %w", err)
	}
	return azureblob.New(client), nil
}

func (r *Resolver) buildGCS() (dupstorage.Provider, error) {
	ctx := context.Background()
	var opts []option.ClientOption
	if r.cfg.CredentialsFile != "" {
		cred, err := creds.LoadBearerCredential(r.cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("stores: gcs credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cred.Raw,
			Expiry:      cred.ExpiresAt,
		})))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("stores: gcs client: %w", err)
	}
	return gcs.New(client, r.cfg.GCS.ProjectID), nil
}

// buildHDFS does not route through storage/creds: colinmarc/hdfs/v2's
// ClientOptions authenticates via the OS user or a Kerberos client, with no
// bearer-token hook to hand a creds.BearerCredential to.
func (r *Resolver) buildHDFS() (dupstorage.Provider, error) {
	client, err := hdfs.New(r.cfg.HDFS.Namenode)
	if err != nil {
		return nil, fmt.Errorf("stores: hdfs client: %w", err)
	}
	return duphdfs.New(client, "/duplication-mill"), nil
}
