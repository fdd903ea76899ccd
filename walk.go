// SPDX-License-Identifier: BSD-3-Clause

// Code in this file was derived from `go/src/io/fs/walk.go`.

package capfs

import (
	iofs "io/fs"
	"path"
)

// SkipDir instructs WalkDir to skip the directory named in the current
// call.
var SkipDir = iofs.SkipDir

// SkipAll instructs WalkDir to skip all remaining files and directories.
var SkipAll = iofs.SkipAll

// WalkDirFunc is the type of the function called by WalkDir to visit each
// file or directory under the walked Dir. path is relative to the Dir
// WalkDir was called on, d.IsDir() is true for root itself. See the
// standard library's io/fs.WalkDirFunc for the exact SkipDir/SkipAll/error
// semantics this mirrors.
type WalkDirFunc func(path string, d DirEntry, err error) error

// WalkDir walks the tree rooted at root (a path relative to d), calling fn
// for every file or directory, including root itself. WalkDir does not
// follow symbolic links found while walking, so a symlink to a directory is
// visited as a leaf, but if root itself names a symlink its target is
// walked.
func WalkDir(d *Dir, root string, fn WalkDirFunc) error {
	m, err := d.Stat(root)
	entry := &metadataDirEntry{dir: d, path: root, m: m}
	if err != nil {
		err = fn(root, nil, err)
	} else {
		err = walkDir(d, root, entry, fn)
	}
	if err == SkipDir || err == SkipAll {
		return nil
	}
	return err
}

func walkDir(d *Dir, name string, entry DirEntry, walkDirFn WalkDirFunc) error {
	if err := walkDirFn(name, entry, nil); err != nil || !entry.IsDir() {
		if err == SkipDir && entry.IsDir() {
			err = nil
		}
		return err
	}

	children, err := d.ReadDir(name)
	if err != nil {
		err = walkDirFn(name, entry, err)
		if err != nil {
			if err == SkipDir && entry.IsDir() {
				err = nil
			}
			return err
		}
	}

	for _, child := range children {
		childPath := path.Join(name, child.Name())
		if err := walkDir(d, childPath, child, walkDirFn); err != nil {
			if err == SkipAll {
				return err
			}
			if err == SkipDir {
				break
			}
			return err
		}
	}
	return nil
}

// metadataDirEntry adapts a Metadata snapshot (as returned by Dir.Stat) to
// DirEntry, used only for the synthetic root entry WalkDir passes to fn
// before any ReadDir has happened.
type metadataDirEntry struct {
	dir  *Dir
	path string
	m    Metadata
}

func (e *metadataDirEntry) Name() string { return e.m.Name() }
func (e *metadataDirEntry) IsDir() bool  { return e.m.IsDir() }
func (e *metadataDirEntry) Type() iofs.FileMode {
	return e.m.ToFileInfo().Mode().Type()
}
func (e *metadataDirEntry) Info() (iofs.FileInfo, error) { return e.m.ToFileInfo(), nil }
func (e *metadataDirEntry) Open() (File, error)          { return e.dir.Open(e.path) }

var _ DirEntry = (*metadataDirEntry)(nil)
