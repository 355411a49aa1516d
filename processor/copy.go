package processor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/teris-io/shortid"
	"golang.org/x/sys/unix"

	"github.com/duplicationmill/core/cmn"
	"github.com/duplicationmill/core/cmn/cos"
	"github.com/duplicationmill/core/metrics"
	"github.com/duplicationmill/core/nlog"
	"github.com/duplicationmill/core/retry"
	"github.com/duplicationmill/core/storage"
	"github.com/duplicationmill/core/task"
)

// minStagingHeadroomBytes is the free-space floor checked before staging a
// copy. The contract gives no reliable declared content length ahead of
// the read (backends don't all surface one in GetContentProperties), so
// this is a coarse "don't start a copy on a nearly-full volume" guard
// rather than an exact per-object reservation.
const minStagingHeadroomBytes = 64 << 20 // 64MiB

// copy implements §4.6's copy protocol: stream source content to a local
// temp file, verify its MD5 against the source-declared checksum (retried
// up to p.cfg.Retry.Attempts times total against a corrupted read), then
// upload to destination with the expected checksum, verifying the
// destination-reported checksum before declaring success. The temp file is
// removed on every exit path.
func (p *Processor) copy(ctx context.Context, t task.Task, src, dst storage.Provider, srcProps map[string]string, srcChecksum string) (outcome string, err error) {
	if err := checkStagingHeadroom(p.cfg.StagingDir); err != nil {
		return "", err
	}

	sid, err := shortid.Generate()
	if err != nil {
		sid = t.ContentID
	}
	log := nlog.With("account", t.Account, "space", t.SpaceID, "content", t.ContentID, "correlation", sid)

	tmpPath := filepath.Join(p.cfg.StagingDir, "dupmill-"+sid+".tmp")
	var length int64

	attempts := p.cfg.Retry.Attempts
	if attempts == 0 {
		attempts = 3
	}

	var lastErr error
	verified := false
	for i := uint(0); i < attempts && !verified; i++ {
		length, lastErr = stageOnce(ctx, src, t.SpaceID, t.ContentID, tmpPath, srcChecksum)
		if lastErr == nil {
			verified = true
			break
		}
		log.Warningf("staging attempt %d/%d failed: %v", i+1, attempts, lastErr)
	}
	if !verified {
		_ = os.Remove(tmpPath)
		return "", cmn.NewTaskExecutionFailed(t.Account, t.SpaceID, t.ContentID, fmt.Errorf("local checksum verification failed after %d attempts: %w", attempts, lastErr))
	}
	defer os.Remove(tmpPath)

	mimetype := srcProps[cos.MimetypeKey]
	cleanProps := cos.Clean(srcProps)

	_, err = retry.Do(ctx, p.cfg.Retry, func() (struct{}, error) {
		f, err := os.Open(tmpPath)
		if err != nil {
			return struct{}{}, err
		}
		defer f.Close()

		storedChecksum, err := dst.PutContent(ctx, t.SpaceID, t.ContentID, mimetype, cleanProps, length, srcChecksum, f)
		if err != nil {
			return struct{}{}, err
		}
		if storedChecksum != "" && storedChecksum != srcChecksum {
			return struct{}{}, fmt.Errorf("destination checksum %q disagrees with source %q", storedChecksum, srcChecksum)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return "", cmn.NewTaskExecutionFailed(t.Account, t.SpaceID, t.ContentID, err)
	}

	if p.metrics != nil {
		p.metrics.CopyBytesTotal.Add(float64(length))
		if p.cfg.StagingDevice != "" {
			if err := p.metrics.SampleStagingDisk(p.cfg.StagingDevice); err != nil {
				log.Warningf("staging disk sample: %v", err)
			}
		}
	}
	return metrics.OutcomeCopied, nil
}

// stageOnce streams src's content to tmpPath and verifies its MD5 against
// expectedChecksum, returning the staged length on success.
func stageOnce(ctx context.Context, src storage.Provider, spaceID, contentID, tmpPath, expectedChecksum string) (int64, error) {
	r, err := src.GetContent(ctx, spaceID, contentID)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := md5.New()
	n, err := io.Copy(f, io.TeeReader(r, h))
	if err != nil {
		return 0, err
	}
	if err := f.Sync(); err != nil {
		return 0, err
	}

	sum := hex.EncodeToString(h.Sum(nil))
	if sum != expectedChecksum {
		return 0, fmt.Errorf("%w: local md5 %q != source checksum %q", errChecksumMismatch, sum, expectedChecksum)
	}
	return n, nil
}

var errChecksumMismatch = errors.New("checksum mismatch")

// checkStagingHeadroom fails fast, as a transient condition, when the
// staging volume looks too full to safely start another copy.
func checkStagingHeadroom(dir string) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return fmt.Errorf("staging headroom check: %w", err)
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minStagingHeadroomBytes {
		return fmt.Errorf("staging directory %q has only %d bytes free, below %d minimum", dir, free, minStagingHeadroomBytes)
	}
	return nil
}
