// SPDX-License-Identifier: MIT

// Package fsutf8 is a thin collaborator over capfs.Dir that rejects any
// path containing invalid UTF-8 before it reaches the resolver, mirroring
// cap-std's fs_utf8 module (cap-std/src/fs_utf8/dir.rs in the original):
// on Unix, paths are arbitrary byte strings, but many callers want the
// stronger guarantee that every path they operate on is valid text.
package fsutf8

import (
	"unicode/utf8"

	"github.com/ferrocap/capfs"
)

// Dir wraps a capfs.Dir, validating every path argument as UTF-8 before
// delegating to the wrapped Dir.
type Dir struct {
	*capfs.Dir
}

// New wraps dir.
func New(dir *capfs.Dir) *Dir { return &Dir{Dir: dir} }

func validate(op, name string) error {
	if !utf8.ValidString(name) {
		return &capfs.PathError{Op: op, Path: name, Err: capfs.ErrInvalid}
	}
	return nil
}

func (d *Dir) Open(name string) (capfs.File, error) {
	if err := validate("open", name); err != nil {
		return nil, err
	}
	return d.Dir.Open(name)
}

func (d *Dir) OpenFile(name string, opts *capfs.OpenOptions) (capfs.File, error) {
	if err := validate("open", name); err != nil {
		return nil, err
	}
	return d.Dir.OpenFile(name, opts)
}

func (d *Dir) Create(name string) (capfs.File, error) {
	if err := validate("create", name); err != nil {
		return nil, err
	}
	return d.Dir.Create(name)
}

func (d *Dir) Mkdir(name string, mode capfs.FileMode) error {
	if err := validate("mkdir", name); err != nil {
		return err
	}
	return d.Dir.Mkdir(name, mode)
}

func (d *Dir) Remove(name string) error {
	if err := validate("remove", name); err != nil {
		return err
	}
	return d.Dir.Remove(name)
}

func (d *Dir) Stat(name string) (capfs.Metadata, error) {
	if err := validate("stat", name); err != nil {
		return capfs.Metadata{}, err
	}
	return d.Dir.Stat(name)
}

func (d *Dir) Lstat(name string) (capfs.Metadata, error) {
	if err := validate("lstat", name); err != nil {
		return capfs.Metadata{}, err
	}
	return d.Dir.Lstat(name)
}

func (d *Dir) Symlink(target, newname string) error {
	if err := validate("symlink", newname); err != nil {
		return err
	}
	if !utf8.ValidString(target) {
		return &capfs.PathError{Op: "symlink", Path: newname, Err: capfs.ErrInvalid}
	}
	return d.Dir.Symlink(target, newname)
}

func (d *Dir) ReadLink(name string) (string, error) {
	if err := validate("readlink", name); err != nil {
		return "", err
	}
	return d.Dir.ReadLink(name)
}
