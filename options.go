// SPDX-License-Identifier: MIT

package capfs

import (
	"emperror.dev/errors"
	"golang.org/x/sys/unix"
)

// FollowSymlinks controls whether the final path component of an open is
// allowed to be a symbolic link.
type FollowSymlinks int

const (
	// FollowYes follows a symlink at the final component, subject to the
	// platform's symlink-expansion cap.
	FollowYes FollowSymlinks = iota
	// FollowNo fails with ErrIsSymlink if the final component is a
	// symbolic link, without ever reading its target.
	FollowNo
)

// OpenOptions is the configuration record for Dir.OpenFile and the other
// sandboxed operations that need to distinguish "open for reading" from
// "open for writing, creating if needed", etc.
type OpenOptions struct {
	Read, Write, Append         bool
	Truncate, Create, CreateNew bool
	Follow                      FollowSymlinks
	DirRequired                 bool
	ReaddirRequired             bool
	Sync, Dsync, Rsync, Nonblock bool

	// Mode is the Unix creation mode (before umask), used only when Create
	// or CreateNew is set. Defaults to 0o666 if zero, applied by
	// creasty/defaults when OpenOptions is populated via NewOpenOptions.
	Mode FileMode `default:"0666"`
	// CustomFlags are OR'd into the native flag set after masking off the
	// access-mode bits, for host-specific flags this type doesn't model
	// directly.
	CustomFlags int
}

// NewOpenOptions returns an OpenOptions with package defaults applied via
// struct tags (a default mode of 0o666 before umask), using
// creasty/defaults the same way ufsconfig.Config is populated.
func NewOpenOptions() *OpenOptions {
	o := &OpenOptions{}
	_ = defaultsSetter(o)
	return o
}

// ReadOnly returns options equivalent to Dir.Open: read-only, following
// symlinks.
func ReadOnly() *OpenOptions {
	return &OpenOptions{Read: true, Mode: 0o666}
}

// Validate checks the invariant that it is a usage error to have
// write=false, append=false, truncate|create|create_new=true, along with the
// closely related rules governing the Unix flag translation. It returns
// ErrInvalid (wrapped) on violation.
func (o *OpenOptions) Validate() error {
	if !o.Read && !o.Write && !o.Append {
		return errors.Wrap(ErrInvalid, "must set at least one of Read, Write, Append")
	}
	writing := o.Write || o.Append
	if !writing && (o.Truncate || o.Create || o.CreateNew) {
		return errors.Wrap(ErrInvalid, "Truncate/Create/CreateNew require Write or Append")
	}
	if o.Append && o.Truncate && !o.CreateNew {
		return errors.Wrap(ErrInvalid, "Append combined with Truncate requires CreateNew")
	}
	return nil
}

// toUnixFlags translates the options record to a native O_* flag set.
func (o *OpenOptions) toUnixFlags() (int, error) {
	if err := o.Validate(); err != nil {
		return 0, err
	}
	var flags int
	switch {
	case o.Read && !o.Write && !o.Append:
		flags = O_RDONLY
	case !o.Read && o.Write && !o.Append:
		flags = O_WRONLY
	case o.Read && o.Write && !o.Append:
		flags = O_RDWR
	case !o.Read && o.Append:
		flags = O_WRONLY | O_APPEND
	case o.Read && o.Append:
		flags = O_RDWR | O_APPEND
	default:
		flags = O_RDONLY
	}

	switch {
	case o.CreateNew:
		flags |= O_CREATE | O_EXCL
	case o.Create && o.Truncate:
		flags |= O_CREATE | O_TRUNC
	case o.Create:
		flags |= O_CREATE
	case o.Truncate:
		flags |= O_TRUNC
	}

	if o.Follow == FollowNo {
		flags |= O_NOFOLLOW
	}
	if o.DirRequired {
		flags |= O_DIRECTORY
	}
	if o.Sync {
		flags |= O_SYNC
	}
	flags |= unix.O_CLOEXEC
	flags |= (o.CustomFlags &^ (unix.O_ACCMODE))
	return flags, nil
}

// CreateDirOptions configures Dir.CreateDirWith, generalizing the boolean
// "recursive" flag of MkdirAll into a DirBuilder-style record, grounded
// on cap-std's DirBuilder.
type CreateDirOptions struct {
	Recursive bool
	Mode      FileMode `default:"0777"`
}

// NewCreateDirOptions returns CreateDirOptions with defaults applied.
func NewCreateDirOptions() *CreateDirOptions {
	o := &CreateDirOptions{}
	_ = defaultsSetter(o)
	return o
}
