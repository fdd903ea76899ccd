// SPDX-License-Identifier: MIT

//go:build unix

package capfs

import (
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Dir is a capability: a handle to an already-opened directory, through
// which every other operation in this package is reached. There is no
// method anywhere in this package that accepts an absolute host path,
// except ambient.OpenDir in the capfs/ambient subpackage, which is the single
// place ambient authority is allowed to enter the sandbox.
type Dir struct {
	fd     int
	name   string
	closed bool
}

// OpenDirFromHandle wraps an already-open, already-verified directory
// descriptor. It exists for callers that obtained a descriptor some other
// way (e.g. a container runtime handing over an fd) and is not itself a way
// to manufacture ambient authority — ownership of fd transfers to Dir.
func OpenDirFromHandle(fd int, name string) (*Dir, error) {
	st, err := fstatUnchecked(fd)
	if err != nil {
		return nil, err
	}
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		return nil, &PathError{Op: "opendir", Path: name, Err: ErrNotDirectory}
	}
	return &Dir{fd: fd, name: name}, nil
}

func (d *Dir) checkOpen() error {
	if d.closed {
		return ErrClosed
	}
	return nil
}

// Close releases the directory descriptor. Further calls on d return
// ErrClosed.
func (d *Dir) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return unix.Close(d.fd)
}

// Fd returns the raw descriptor backing d. The descriptor remains owned by
// d; callers must not close it.
func (d *Dir) Fd() uintptr { return uintptr(d.fd) }

// resolveForParent chooses the openat2 fast path when available, falling
// back to the portable walker otherwise.
func (d *Dir) resolveForParent(p string) (parentFd int, leaf string, err error) {
	if fd, l, ok, rerr := resolveParentOpenat2(d.fd, p); ok {
		return fd, l, rerr
	}
	return resolveParent(d.fd, p)
}

func (d *Dir) resolveForFull(p string, follow FollowSymlinks) (fd int, isDir bool, err error) {
	if fd, isDir, ok, rerr := resolveFullOpenat2(d.fd, p, follow); ok {
		return fd, isDir, rerr
	}
	return resolveFull(d.fd, p, follow)
}

// OpenFile opens name according to opts, resolved inside d's subtree.
func (d *Dir) OpenFile(name string, opts *OpenOptions) (File, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	flags, err := opts.toUnixFlags()
	if err != nil {
		return nil, err
	}

	if opts.Create || opts.CreateNew {
		parentFd, leaf, err := d.resolveForParent(name)
		if err != nil {
			return nil, err
		}
		defer unix.Close(parentFd)
		fd, err := openUnchecked(parentFd, leaf, flags|O_NOFOLLOW, syscallMode(opts.Mode))
		if err != nil && isSymlinkErrno(err) {
			if flags&O_NOFOLLOW != 0 {
				return nil, &PathError{Op: "open", Path: name, Err: ErrIsSymlink}
			}
			// The leaf is an existing symlink: follow it through the
			// sandboxed resolver rather than letting openat follow it.
			pathFd, _, rerr := d.resolveForFull(name, FollowYes)
			if rerr != nil {
				return nil, rerr
			}
			fd, err = reopenFromPath(pathFd, flags&^(O_CREATE|O_EXCL))
			unix.Close(pathFd)
		}
		if err != nil {
			return nil, convertErrorType(err)
		}
		return newOsFile(fd, name), nil
	}

	follow := FollowYes
	if flags&O_NOFOLLOW != 0 {
		follow = FollowNo
	}
	fd, isDir, err := d.resolveForFull(name, follow)
	if err != nil {
		return nil, err
	}
	if follow == FollowNo && !isDir {
		if st, serr := fstatUnchecked(fd); serr == nil && st.Mode&unix.S_IFMT == unix.S_IFLNK {
			unix.Close(fd)
			return nil, &PathError{Op: "open", Path: name, Err: ErrIsSymlink}
		}
	}
	if opts.DirRequired && !isDir {
		unix.Close(fd)
		return nil, &PathError{Op: "open", Path: name, Err: ErrNotDirectory}
	}
	// The resolver returns an O_PATH descriptor; reopen it with the
	// caller's requested access mode via /proc/self/fd, matching how
	// O_PATH handles are normally upgraded on Linux.
	real, err := reopenFromPath(fd, flags)
	unix.Close(fd)
	if err != nil {
		return nil, convertErrorType(err)
	}
	if racyAssertsEnabled {
		racyAssertOpenInsideRoot(d.fd, real, name)
	}
	return newOsFile(real, name), nil
}

// Open opens name for reading, following symlinks.
func (d *Dir) Open(name string) (File, error) {
	return d.OpenFile(name, &OpenOptions{Read: true})
}

// Create creates (or truncates) name for writing.
func (d *Dir) Create(name string) (File, error) {
	o := NewOpenOptions()
	o.Write, o.Create, o.Truncate = true, true, true
	return d.OpenFile(name, o)
}

// OpenDir opens name, which must already exist and be a directory, and
// returns a new Dir capability scoped to it.
func (d *Dir) OpenDir(name string) (*Dir, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	fd, isDir, err := d.resolveForFull(name, FollowYes)
	if err != nil {
		return nil, err
	}
	if !isDir {
		unix.Close(fd)
		return nil, &PathError{Op: "opendir", Path: name, Err: ErrNotDirectory}
	}
	real, err := reopenFromPath(fd, O_DIRECTORY|O_RDONLY)
	unix.Close(fd)
	if err != nil {
		return nil, convertErrorType(err)
	}
	return &Dir{fd: real, name: name}, nil
}

// Mkdir creates name as a new, empty directory.
func (d *Dir) Mkdir(name string, mode FileMode) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	parentFd, leaf, err := d.resolveForParent(name)
	if err != nil {
		return err
	}
	defer unix.Close(parentFd)
	return convertErrorType(mkdirUnchecked(parentFd, leaf, syscallMode(mode)))
}

// CreateDirWith creates name as a directory, honoring opts.Recursive the
// way cap-std's DirBuilder does: when set, missing intermediate components
// are created too and an already-existing leaf directory is not an error.
func (d *Dir) CreateDirWith(name string, opts *CreateDirOptions) error {
	if !opts.Recursive {
		return d.Mkdir(name, opts.Mode)
	}
	parts, isAbs, _ := splitComponents(name)
	if isAbs {
		return &PathError{Op: "mkdirall", Path: name, Err: ErrBadPathResolution}
	}
	cur := ""
	for i, part := range parts {
		if i == 0 {
			cur = part
		} else {
			cur = cur + "/" + part
		}
		err := d.Mkdir(cur, opts.Mode)
		if err != nil && !os.IsExist(err) {
			return err
		}
	}
	return nil
}

// MkdirAll is the non-DirBuilder convenience form of CreateDirWith.
func (d *Dir) MkdirAll(name string, mode FileMode) error {
	return d.CreateDirWith(name, &CreateDirOptions{Recursive: true, Mode: mode})
}

// Remove removes name, which must be an empty directory or a non-directory.
func (d *Dir) Remove(name string) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	parentFd, leaf, err := d.resolveForParent(name)
	if err != nil {
		return err
	}
	defer unix.Close(parentFd)

	err = unlinkUnchecked(parentFd, leaf, false)
	if err == nil {
		return nil
	}
	if isErrno(err, unix.EISDIR) || isErrno(err, unix.EPERM) {
		return convertErrorType(unlinkUnchecked(parentFd, leaf, true))
	}
	if isErrno(err, unix.ENOTDIR) {
		return convertErrorType(err)
	}
	return convertErrorType(err)
}

// RemoveDir removes name, which must be an empty directory.
func (d *Dir) RemoveDir(name string) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	parentFd, leaf, err := d.resolveForParent(name)
	if err != nil {
		return err
	}
	defer unix.Close(parentFd)
	return convertErrorType(unlinkUnchecked(parentFd, leaf, true))
}

// RemoveAll removes name and, if it is a directory, everything beneath it.
func (d *Dir) RemoveAll(name string) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	parentFd, leaf, err := d.resolveForParent(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer unix.Close(parentFd)
	return removeAllAt(parentFd, leaf)
}

// Rename moves oldname in d to newname in destDir, replacing newname if it
// already exists and is of a compatible type. Overlap between the subtrees
// of d and destDir is not detected.
func (d *Dir) Rename(oldname string, destDir *Dir, newname string) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if err := destDir.checkOpen(); err != nil {
		return err
	}
	oldParent, oldLeaf, err := d.resolveForParent(oldname)
	if err != nil {
		return err
	}
	defer unix.Close(oldParent)
	newParent, newLeaf, err := destDir.resolveForParent(newname)
	if err != nil {
		return err
	}
	defer unix.Close(newParent)
	return convertErrorType(renameUnchecked(oldParent, oldLeaf, newParent, newLeaf))
}

// HardLink creates newname in destDir as a new hard link to oldname in d.
func (d *Dir) HardLink(oldname string, destDir *Dir, newname string) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	oldParent, oldLeaf, err := d.resolveForParent(oldname)
	if err != nil {
		return err
	}
	defer unix.Close(oldParent)
	newParent, newLeaf, err := destDir.resolveForParent(newname)
	if err != nil {
		return err
	}
	defer unix.Close(newParent)
	return convertErrorType(linkUnchecked(oldParent, oldLeaf, newParent, newLeaf, false))
}

// Symlink creates newname as a symbolic link pointing at target. target is
// stored verbatim and is not itself resolved or validated against the
// sandbox, mirroring os.Symlink and cap-std's Dir::symlink: a dangling or
// even absolute-looking target is permitted to be written, it is only ever
// rejected at resolution time, when something tries to follow it.
func (d *Dir) Symlink(target, newname string) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	parentFd, leaf, err := d.resolveForParent(newname)
	if err != nil {
		return err
	}
	defer unix.Close(parentFd)
	return convertErrorType(symlinkUnchecked(target, parentFd, leaf))
}

// ReadLink returns the target of the symbolic link named name.
func (d *Dir) ReadLink(name string) (string, error) {
	if err := d.checkOpen(); err != nil {
		return "", err
	}
	parentFd, leaf, err := d.resolveForParent(name)
	if err != nil {
		return "", err
	}
	defer unix.Close(parentFd)
	target, err := readlinkUnchecked(parentFd, leaf)
	if err != nil {
		return "", convertErrorType(err)
	}
	return target, nil
}

// Stat returns Metadata for name, following a trailing symlink.
func (d *Dir) Stat(name string) (Metadata, error) {
	return d.statCommon(name, true)
}

// Lstat returns Metadata for name without following a trailing symlink.
func (d *Dir) Lstat(name string) (Metadata, error) {
	return d.statCommon(name, false)
}

func (d *Dir) statCommon(name string, follow bool) (Metadata, error) {
	if err := d.checkOpen(); err != nil {
		return Metadata{}, err
	}
	followMode := FollowNo
	if follow {
		followMode = FollowYes
	}
	fd, _, err := d.resolveForFull(name, followMode)
	if err != nil {
		return Metadata{}, err
	}
	defer unix.Close(fd)
	st, err := fstatUnchecked(fd)
	if err != nil {
		return Metadata{}, err
	}
	return metadataFromStat(basename(name), &st), nil
}

// SetPermissions changes name's permission bits.
func (d *Dir) SetPermissions(name string, perm Permissions) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	mode, _ := perm.Mode()
	parentFd, leaf, err := d.resolveForParent(name)
	if err != nil {
		return err
	}
	defer unix.Close(parentFd)
	return convertErrorType(chmodatUnchecked(parentFd, leaf, mode, true))
}

// Chown changes the owner and group of name, following a trailing symlink.
func (d *Dir) Chown(name string, uid, gid int) error {
	return d.chownCommon(name, uid, gid, true)
}

// Lchown is Chown but does not follow a trailing symlink.
func (d *Dir) Lchown(name string, uid, gid int) error {
	return d.chownCommon(name, uid, gid, false)
}

func (d *Dir) chownCommon(name string, uid, gid int, follow bool) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	parentFd, leaf, err := d.resolveForParent(name)
	if err != nil {
		return err
	}
	defer unix.Close(parentFd)
	return convertErrorType(chownatUnchecked(parentFd, leaf, uid, gid, follow))
}

// SetTimes sets name's access and modification times. A zero time.Time for
// either argument leaves that timestamp unchanged (UTIME_OMIT semantics).
func (d *Dir) SetTimes(name string, atime, mtime time.Time) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	parentFd, leaf, err := d.resolveForParent(name)
	if err != nil {
		return err
	}
	defer unix.Close(parentFd)
	return convertErrorType(chtimesatUnchecked(parentFd, leaf, atime, mtime, true))
}

// Touch opens (creating if necessary) and returns name, a convenience
// wrapper around OpenFile's create-and-open-for-read-write combination.
func (d *Dir) Touch(name string, mode FileMode) (File, error) {
	o := NewOpenOptions()
	o.Read, o.Write, o.Create = true, true, true
	o.Mode = mode
	return d.OpenFile(name, o)
}

// ReadDir reads the named directory's entries, relative to d. The entries
// keep the directory's descriptor open for their Info and Open calls; it is
// released once neither they nor the listing are referenced any more.
func (d *Dir) ReadDir(name string) ([]DirEntry, error) {
	sub, err := d.OpenDir(name)
	if err != nil {
		return nil, err
	}
	return newOsFile(sub.fd, name).readDirAll()
}

// Clone returns a new Dir backed by a duplicated descriptor pointing at the
// same directory, so the two handles can be closed independently.
func (d *Dir) Clone() (*Dir, error) {
	if err := d.checkOpen(); err != nil {
		return nil, err
	}
	dup, err := unix.Dup(d.fd)
	if err != nil {
		return nil, NewSyscallError("dup", err)
	}
	return &Dir{fd: dup, name: d.name}, nil
}

// TryClone is an alias for Clone kept for callers porting code from
// cap-std, where the method is named try_clone.
func (d *Dir) TryClone() (*Dir, error) { return d.Clone() }

func isErrno(err error, target unix.Errno) bool {
	var pErr *PathError
	if e, ok := err.(*PathError); ok {
		pErr = e
	} else if perr, ok2 := asPathError(err); ok2 {
		pErr = perr
	}
	if pErr != nil {
		if errno, ok := pErr.Err.(unix.Errno); ok {
			return errno == target
		}
	}
	if errno, ok := err.(unix.Errno); ok {
		return errno == target
	}
	return false
}

func asPathError(err error) (*PathError, bool) {
	type unwrapper interface{ Unwrap() error }
	for err != nil {
		if pe, ok := err.(*PathError); ok {
			return pe, true
		}
		u, ok := err.(unwrapper)
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return nil, false
}

// reopenFromPath upgrades an O_PATH descriptor to one usable for I/O, by
// reopening it through /proc/self/fd — the standard technique for
// completing an O_PATH-based resolution (used identically by
// cap-primitives' open_manually implementation and by util-linux's nsenter).
func reopenFromPath(pathFd int, flags int) (int, error) {
	flags &^= O_NOFOLLOW
	name := procSelfFd(pathFd)
	fd, err := unix.Open(name, flags|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

func procSelfFd(fd int) string {
	return "/proc/self/fd/" + itoa(fd)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// osFile adapts a raw descriptor to the File interface using os.File for
// its I/O method set, wrapping descriptors with os.NewFile rather than
// reimplementing read/write/seek.
type osFile struct {
	f    *os.File
	name string
}

func newOsFile(fd int, name string) *osFile {
	return &osFile{f: os.NewFile(uintptr(fd), name), name: name}
}

func (o *osFile) Name() string { return o.name }

func (o *osFile) Stat() (Metadata, error) {
	st, err := fstatUnchecked(int(o.f.Fd()))
	if err != nil {
		return Metadata{}, err
	}
	return metadataFromStat(basename(o.name), &st), nil
}

func (o *osFile) ReadDir(n int) ([]DirEntry, error) {
	names, err := o.f.Readdirnames(n)
	if err != nil && err != io.EOF {
		return nil, err
	}
	entries := make([]DirEntry, 0, len(names))
	for _, nm := range names {
		entries = append(entries, &dirEntry{parent: o.f, name: nm})
	}
	return entries, err
}

func (o *osFile) readDirAll() ([]DirEntry, error) {
	entries, err := o.ReadDir(-1)
	if err == io.EOF {
		err = nil
	}
	return entries, err
}

func (o *osFile) Readdirnames(n int) ([]string, error) { return o.f.Readdirnames(n) }
func (o *osFile) Fd() uintptr                           { return o.f.Fd() }
func (o *osFile) Truncate(size int64) error             { return o.f.Truncate(size) }
func (o *osFile) Close() error                          { return o.f.Close() }
func (o *osFile) Read(p []byte) (int, error)            { return o.f.Read(p) }
func (o *osFile) ReadAt(p []byte, off int64) (int, error) { return o.f.ReadAt(p, off) }
func (o *osFile) ReadFrom(r io.Reader) (int64, error)   { return o.f.ReadFrom(r) }
func (o *osFile) Write(p []byte) (int, error)           { return o.f.Write(p) }
func (o *osFile) WriteAt(p []byte, off int64) (int, error) { return o.f.WriteAt(p, off) }
func (o *osFile) Seek(offset int64, whence int) (int64, error) { return o.f.Seek(offset, whence) }

var _ File = (*osFile)(nil)

// dirEntry implements DirEntry for entries produced by osFile.ReadDir.
type dirEntry struct {
	parent *os.File
	name   string
}

func (e *dirEntry) Name() string { return e.name }

func (e *dirEntry) Info() (os.FileInfo, error) {
	st, err := fstatatUnchecked(int(e.parent.Fd()), e.name, false)
	if err != nil {
		return nil, err
	}
	m := metadataFromStat(e.name, &st)
	return m.ToFileInfo(), nil
}

func (e *dirEntry) Type() os.FileMode {
	info, err := e.Info()
	if err != nil {
		return 0
	}
	return info.Mode().Type()
}

func (e *dirEntry) IsDir() bool {
	info, err := e.Info()
	return err == nil && info.IsDir()
}

func (e *dirEntry) Open() (File, error) {
	fd, err := openUnchecked(int(e.parent.Fd()), e.name, O_RDONLY|O_NOFOLLOW, 0)
	if err != nil {
		return nil, convertErrorType(err)
	}
	return newOsFile(fd, e.name), nil
}

var _ DirEntry = (*dirEntry)(nil)
