// Package archive copies original files to a manifest-tracked backup location
// before mutation and can restore them byte-identically on demand. Archiving
// never mutates the source it copies; a failed archive aborts the batch
// before any conversion runs.
package archive

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
)

// ArchiveError reports an I/O failure while copying to or from the archive
// location, or an invalid archive reference during recovery.
type ArchiveError struct {
	Op   string
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// Archive copies each path into root under a collision-free name and records
// the mapping in the manifest. The filesystem must agree with the process
// view of root, since the sqlite manifest is opened by plain path.
func Archive(fs billy.Filesystem, paths []string, root string) error {
	if err := fs.MkdirAll(root, 0o755); err != nil {
		return &ArchiveError{Op: "mkdir", Path: root, Err: err}
	}

	manifest, err := OpenManifest(filepath.Join(root, ManifestName))
	if err != nil {
		return &ArchiveError{Op: "open manifest", Path: root, Err: err}
	}
	defer func() { _ = manifest.Close() }()

	for _, path := range paths {
		name := archiveName(path)
		if err := copyFile(fs, path, filepath.Join(root, name)); err != nil {
			return &ArchiveError{Op: "copy", Path: path, Err: err}
		}
		if err := manifest.Add(name, path); err != nil {
			return &ArchiveError{Op: "record", Path: path, Err: err}
		}
	}
	return nil
}

// Recover copies every archived file back over its original path and
// optionally removes the archive afterward.
func Recover(fs billy.Filesystem, root string, removeArchive bool) error {
	manifestPath := filepath.Join(root, ManifestName)
	if _, err := fs.Stat(manifestPath); err != nil {
		return &ArchiveError{Op: "locate manifest", Path: root, Err: err}
	}

	manifest, err := OpenManifest(manifestPath)
	if err != nil {
		return &ArchiveError{Op: "open manifest", Path: root, Err: err}
	}

	entries, err := manifest.Entries()
	_ = manifest.Close()
	if err != nil {
		return &ArchiveError{Op: "read manifest", Path: root, Err: err}
	}

	for _, e := range entries {
		if err := copyFile(fs, filepath.Join(root, e.Archived), e.Original); err != nil {
			return &ArchiveError{Op: "restore", Path: e.Original, Err: err}
		}
	}

	if removeArchive {
		if err := util.RemoveAll(fs, root); err != nil {
			return &ArchiveError{Op: "remove", Path: root, Err: err}
		}
	}
	return nil
}

// archiveName builds a flat, collision-free name: two files from different
// directories may share a base name, so a random suffix is appended.
func archiveName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s-%s%s", stem, uuid.NewString()[:8], ext)
}

func copyFile(fs billy.Filesystem, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
