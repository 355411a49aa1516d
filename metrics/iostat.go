package metrics

import "github.com/lufia/iostat"

// SampleStagingDisk updates DiskReadBytes/DiskWriteBytes from the host's
// per-device IO counters, matched against device by name. It is sampled
// around the processor's local temp-file copy protocol — the one
// local-filesystem-bound step in an otherwise all-remote pipeline — purely
// as an operational signal; no control-flow decision depends on it.
func (m *Metrics) SampleStagingDisk(device string) error {
	drives, err := iostat.ReadDriveStats()
	if err != nil {
		return err
	}
	for _, d := range drives {
		if d.Name != device {
			continue
		}
		m.DiskReadBytes.Set(float64(d.BytesRead))
		m.DiskWriteBytes.Set(float64(d.BytesWritten))
		return nil
	}
	return nil
}
