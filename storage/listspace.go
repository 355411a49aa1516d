package storage

import "context"

// PageAll drives a full ListSpace scan over any ListSpaceChunk
// implementation, paging ChunkSize at a time. The S3 and GCS backends use
// their SDKs' own paginators instead; the Azure Blob, HDFS, generic REST
// gateway and memstore backends build ListSpace on this helper over their
// own ListSpaceChunk.
func PageAll(ctx context.Context, chunker func(ctx context.Context, marker string, limit int) ([]string, error), cb func(contentID string) error) error {
	marker := ""
	for {
		ids, err := chunker(ctx, marker, ChunkSize)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		for _, id := range ids {
			if err := cb(id); err != nil {
				return err
			}
		}
		marker = ids[len(ids)-1]
	}
}
