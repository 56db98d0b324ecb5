// Package backup produces tar.gz snapshots of the per-service data
// directories. Containers are left running; the archive is a best-effort
// operator convenience, not a consistent snapshot.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mholt/archiver/v3"
	"github.com/schollz/progressbar/v3"

	"github.com/mensylisir/esxm/pkg/errors"
	"github.com/mensylisir/esxm/pkg/logger"
)

// Result describes a produced backup artifact.
type Result struct {
	ArchivePath string
	SizeBytes   int64
}

// Run archives dataDir into <clusterName>-backup-<UTC timestamp>.tar.gz in
// outDir. A missing data directory is a SourceMissing error. When showBar
// is set a spinner renders while the archive is written.
func Run(clusterName, dataDir, outDir string, showBar bool) (*Result, error) {
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		return nil, errors.New(errors.KindSourceMissing, "data directory %s does not exist; nothing to back up", dataDir)
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	archivePath := filepath.Join(outDir, fmt.Sprintf("%s-backup-%s.tar.gz", clusterName, stamp))

	var bar *progressbar.ProgressBar
	if showBar {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(fmt.Sprintf("Archiving %s", dataDir)),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		)
		done := make(chan struct{})
		defer close(done)
		go func() {
			t := time.NewTicker(120 * time.Millisecond)
			defer t.Stop()
			for {
				select {
				case <-done:
					return
				case <-t.C:
					_ = bar.Add(1)
				}
			}
		}()
	}

	if err := archiver.Archive([]string{dataDir}, archivePath); err != nil {
		return nil, errors.Wrap(err, errors.KindPhaseFailed, "archiving %s", dataDir)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindPhaseFailed, "inspecting archive %s", archivePath)
	}
	logger.Get().Debugf("backup written: %s (%d bytes)", archivePath, info.Size())
	return &Result{ArchivePath: archivePath, SizeBytes: info.Size()}, nil
}
