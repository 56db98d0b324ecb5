// Package certs moves the opaque certificate bundle shared by cluster
// nodes between its docker named volume and portable forms (a staging
// directory plus a tar.gz archive). Bundle contents are never interpreted;
// validity is the TLS layer's concern.
package certs

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v3"

	"github.com/mensylisir/esxm/pkg/common"
	"github.com/mensylisir/esxm/pkg/connector"
	"github.com/mensylisir/esxm/pkg/errors"
	"github.com/mensylisir/esxm/pkg/logger"
)

// Transfer exports and imports certificate bundles. Both directions are
// overwrite-safe: re-running replaces, never duplicates.
type Transfer struct {
	rt  connector.Runtime
	log *logger.Logger
}

// NewTransfer builds a Transfer over the given runtime.
func NewTransfer(rt connector.Runtime) *Transfer {
	return &Transfer{rt: rt, log: logger.Get()}
}

// Export copies the bundle volume's contents into destDir and packs them
// into a tar.gz next to it. A missing bundle is a distinct BundleMissing
// error.
func (t *Transfer) Export(ctx context.Context, bundleID, destDir string) error {
	exists, err := t.rt.VolumeExists(ctx, bundleID)
	if err != nil {
		return err
	}
	if !exists {
		return errors.New(errors.KindBundleMissing, "certificate bundle %q does not exist; deploy the master first", bundleID)
	}

	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return errors.Wrap(err, errors.KindPhaseFailed, "creating export directory %s", destDir)
	}
	if err := t.rt.CopyFromVolume(ctx, bundleID, destDir); err != nil {
		return err
	}

	archivePath := filepath.Join(filepath.Dir(destDir), common.CertsArchiveName)
	if err := packArchive(destDir, archivePath); err != nil {
		return err
	}
	t.log.Debugf("bundle %q exported to %s and %s", bundleID, destDir, archivePath)
	return nil
}

// Import copies srcPath, a directory or a tar.gz produced by Export, into
// the bundle volume, creating the volume if absent. A missing source is a
// distinct SourceMissing error.
func (t *Transfer) Import(ctx context.Context, srcPath, bundleID string) error {
	info, err := os.Stat(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New(errors.KindSourceMissing, "certificate source %s does not exist", srcPath)
		}
		return errors.Wrap(err, errors.KindPhaseFailed, "inspecting certificate source %s", srcPath)
	}

	srcDir := srcPath
	if !info.IsDir() {
		if !strings.HasSuffix(srcPath, ".tar.gz") && !strings.HasSuffix(srcPath, ".tgz") {
			return errors.New(errors.KindSourceMissing, "certificate source %s is neither a directory nor a tar.gz archive", srcPath)
		}
		tmp, err := os.MkdirTemp("", "esxm-certs-import-")
		if err != nil {
			return errors.Wrap(err, errors.KindPhaseFailed, "creating staging directory")
		}
		defer os.RemoveAll(tmp)
		if err := archiver.Unarchive(srcPath, tmp); err != nil {
			return errors.Wrap(err, errors.KindPhaseFailed, "unpacking %s", srcPath)
		}
		srcDir = unwrapSingleDir(tmp)
	}

	if err := t.rt.EnsureVolume(ctx, bundleID); err != nil {
		return err
	}
	if err := t.rt.CopyToVolume(ctx, bundleID, srcDir); err != nil {
		return err
	}
	t.log.Debugf("bundle %q imported from %s", bundleID, srcPath)
	return nil
}

// packArchive writes srcDir into a tar.gz at archivePath, replacing any
// previous archive.
func packArchive(srcDir, archivePath string) error {
	if _, err := os.Stat(archivePath); err == nil {
		if err := os.Remove(archivePath); err != nil {
			return errors.Wrap(err, errors.KindPhaseFailed, "replacing archive %s", archivePath)
		}
	}
	if err := archiver.Archive([]string{srcDir}, archivePath); err != nil {
		return errors.Wrap(err, errors.KindPhaseFailed, "packing %s", archivePath)
	}
	return nil
}

// unwrapSingleDir descends into dir when it contains exactly one
// subdirectory and nothing else, which is how Export's archive unpacks.
func unwrapSingleDir(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		return dir
	}
	return filepath.Join(dir, entries[0].Name())
}
