package producer

import "context"

// flushPending sends whatever is currently buffered in pendingBatch to the
// TaskQueue in groups of batchSize, then clears it. Called both mid-page
// (once a full batch accumulates) and at the end of every loop iteration
// so a partial batch is never left unflushed across a persisted state
// checkpoint.
func (p *Producer) flushPending(ctx context.Context) error {
	for len(p.pendingBatch) > 0 {
		end := batchSize
		if end > len(p.pendingBatch) {
			end = len(p.pendingBatch)
		}
		if err := p.queue.PutBatch(ctx, p.pendingBatch[:end]); err != nil {
			return err
		}
		p.pendingBatch = p.pendingBatch[end:]
	}
	return nil
}
