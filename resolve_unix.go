// SPDX-License-Identifier: MIT

//go:build unix

package capfs

import (
	"path"
	"strings"

	"golang.org/x/sys/unix"
)

// This file implements the portable manual resolver: a
// component-by-component walk that never trusts the kernel to confine path
// resolution on its own. It is the fallback used whenever the openat2
// RESOLVE_BENEATH fast path (resolve_openat2_linux.go) is unavailable —
// older kernels, non-Linux Unixes, or after the fast path has been marked
// permanently unsupported for this process.
//
// The walk is grounded on the symlink-stack bookkeeping pattern used by
// cyphar/filepath-securejoin's partialLookupInRoot: components are consumed
// one at a time from a remaining-path queue, an opened symlink's target is
// spliced back onto the front of that queue instead of being string-joined
// and reparsed from scratch, and ".." is handled by popping a stack of
// already-open directory descriptors rather than by reopening the parent by
// name (which would be racy against a concurrent rename).

// maxSymlinkExpansions bounds how many symlinks a single resolveXxx call may
// expand before giving up with ErrTooManySymlinks. The value
// matches Linux's own MAXSYMLINKS.
const maxSymlinkExpansions = 40

// dirStack is a LIFO of open directory descriptors rooted at the handle the
// walk started from. Index 0 is always the root and is never popped.
type dirStack struct {
	fds []int
}

func newDirStack(rootFd int) *dirStack {
	return &dirStack{fds: []int{rootFd}}
}

func (s *dirStack) top() int { return s.fds[len(s.fds)-1] }

// push duplicates fd (the caller retains ownership of its own copy) and
// makes the duplicate the new top of stack.
func (s *dirStack) push(fd int) error {
	dup, err := unix.Dup(fd)
	if err != nil {
		return NewSyscallError("dup", err)
	}
	s.fds = append(s.fds, dup)
	return nil
}

// pop closes and discards the current top of stack, unless it is the root.
func (s *dirStack) pop() {
	if len(s.fds) <= 1 {
		return
	}
	last := len(s.fds) - 1
	unix.Close(s.fds[last])
	s.fds = s.fds[:last]
}

// resetToRoot drops every descriptor above the root.
func (s *dirStack) resetToRoot() {
	for len(s.fds) > 1 {
		s.pop()
	}
}

// closeAboveRoot releases every descriptor the walk opened beyond the
// original root handle, leaving the root itself untouched.
func (s *dirStack) closeAboveRoot() { s.resetToRoot() }

// componentQueue is the remaining-components-to-walk queue. It supports
// splicing a symlink's target components onto the front, exactly the
// "linkUnwalked" behavior of the securejoin symlink stack, without needing
// a full stack of partial entries since this resolver errors out on
// dangling intermediate symlinks instead of emulating RESOLVE_IN_ROOT's
// partial-lookup semantics for them.
type componentQueue struct {
	parts []string
}

func newComponentQueue(parts []string) *componentQueue {
	q := &componentQueue{}
	q.parts = append(q.parts, parts...)
	return q
}

func (q *componentQueue) empty() bool { return len(q.parts) == 0 }

func (q *componentQueue) pop() string {
	p := q.parts[0]
	q.parts = q.parts[1:]
	return p
}

// spliceFront pushes target's components onto the front of the queue, ahead
// of whatever was already queued, the way a symlink's target is resolved
// before the path components that followed it in the original string.
func (q *componentQueue) spliceFront(target string) (absolute bool) {
	absolute = strings.HasPrefix(target, "/")
	trimmed := strings.Trim(target, "/")
	var parts []string
	if trimmed != "" {
		for _, p := range strings.Split(trimmed, "/") {
			if p != "" {
				parts = append(parts, p)
			}
		}
	}
	q.parts = append(parts, q.parts...)
	return absolute
}

// resolveParent walks every component of p except the last, returning an
// open descriptor to the directory that contains the final component and
// the final component's (unresolved) name. This is the shape every
// last-component-mutating operation needs: mkdir, unlink, rename, link,
// symlink all apply their unchecked primitive to (parentFd, leaf) so the
// kernel — not a second resolver pass — makes the leaf operation atomic.
//
// The returned descriptor must be closed by the caller.
func resolveParent(rootFd int, p string) (parentFd int, leaf string, err error) {
	parts, isAbs, _ := splitComponents(p)
	if isAbs {
		return -1, "", &PathError{Op: "resolve", Path: p, Err: ErrBadPathResolution}
	}
	if len(parts) == 0 {
		return -1, "", &PathError{Op: "resolve", Path: p, Err: ErrBadPathResolution}
	}
	leaf = parts[len(parts)-1]
	dirParts := parts[:len(parts)-1]

	stack := newDirStack(rootFd)
	defer stack.closeAboveRoot()

	if err := walkComponents(stack, newComponentQueue(dirParts)); err != nil {
		return -1, "", err
	}

	dup, err := unix.Dup(stack.top())
	if err != nil {
		return -1, "", NewSyscallError("dup", err)
	}
	if classifyComponent(leaf) != componentNormal {
		unix.Close(dup)
		return -1, "", &PathError{Op: "resolve", Path: p, Err: ErrBadPathResolution}
	}
	return dup, leaf, nil
}

// resolveFull walks every component of p, including the last, and returns
// an O_PATH-equivalent open descriptor positioned on the final target.
// follow controls whether a symlink at the final component is itself
// expanded (FollowYes) or left for the caller to reject (FollowNo returns
// an O_PATH descriptor of the symlink itself, with isDir=false). An
// absolute symlink target fails with ErrBadPathResolution.
func resolveFull(rootFd int, p string, follow FollowSymlinks) (fd int, isDir bool, err error) {
	parts, isAbs, dirRequired := splitComponents(p)
	if isAbs {
		return -1, false, &PathError{Op: "resolve", Path: p, Err: ErrBadPathResolution}
	}

	stack := newDirStack(rootFd)
	defer stack.closeAboveRoot()

	if len(parts) == 0 {
		// "" or "." resolves to the root itself.
		dup, err := unix.Dup(rootFd)
		if err != nil {
			return -1, false, NewSyscallError("dup", err)
		}
		return dup, true, nil
	}

	queue := newComponentQueue(parts)
	expansions := 0
	var lastFd int = -1
	lastWasDir := false

	for !queue.empty() {
		part := queue.pop()
		switch classifyComponent(part) {
		case componentCurDir:
			continue
		case componentParentDir:
			if lastFd != -1 {
				unix.Close(lastFd)
				lastFd = -1
			}
			if len(stack.fds) <= 1 {
				return -1, false, &PathError{Op: "resolve", Path: p, Err: ErrBadPathResolution}
			}
			stack.pop()
			continue
		}

		if lastFd != -1 {
			unix.Close(lastFd)
			lastFd = -1
		}

		openFlags := unix.O_PATH | unix.O_NOFOLLOW | unix.O_CLOEXEC
		childFd, err := openUnchecked(stack.top(), part, openFlags, 0)
		if err != nil {
			if isSymlinkErrno(err) {
				// Fall through to readlink handling below.
			} else {
				return -1, false, convertErrorType(err)
			}
		}

		isLast := queue.empty()
		if err == nil {
			st, serr := fstatUnchecked(childFd)
			if serr != nil {
				unix.Close(childFd)
				return -1, false, serr
			}
			switch st.Mode & unix.S_IFMT {
			case unix.S_IFLNK:
				unix.Close(childFd)
				if isLast && follow == FollowNo {
					fd2, err2 := openUnchecked(stack.top(), part, unix.O_PATH|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
					if err2 != nil {
						return -1, false, convertErrorType(err2)
					}
					return fd2, false, nil
				}
				target, rerr := readlinkUnchecked(stack.top(), part)
				if rerr != nil {
					return -1, false, rerr
				}
				expansions++
				if expansions > maxSymlinkExpansions {
					return -1, false, &PathError{Op: "resolve", Path: p, Err: ErrTooManySymlinks}
				}
				if abs := queue.spliceFront(target); abs {
					return -1, false, &PathError{Op: "resolve", Path: p, Err: ErrBadPathResolution}
				}
				continue
			case unix.S_IFDIR:
				if err := stack.push(childFd); err != nil {
					unix.Close(childFd)
					return -1, false, err
				}
				if isLast {
					lastFd = childFd
					lastWasDir = true
				} else {
					unix.Close(childFd)
				}
				continue
			default:
				if !isLast {
					unix.Close(childFd)
					return -1, false, &PathError{Op: "resolve", Path: p, Err: ErrNotDirectory}
				}
				lastFd = childFd
				lastWasDir = false
				continue
			}
		}

		// err != nil and isSymlinkErrno(err): opened with O_NOFOLLOW against
		// a symlink, so open again without NOFOLLOW is wrong — instead
		// readlink it directly.
		target, rerr := readlinkUnchecked(stack.top(), part)
		if rerr != nil {
			return -1, false, rerr
		}
		expansions++
		if expansions > maxSymlinkExpansions {
			return -1, false, &PathError{Op: "resolve", Path: p, Err: ErrTooManySymlinks}
		}
		if abs := queue.spliceFront(target); abs {
			return -1, false, &PathError{Op: "resolve", Path: p, Err: ErrBadPathResolution}
		}
	}

	if lastFd == -1 {
		// The path resolved entirely through "." / ".." components, landing
		// back on a directory already tracked by the stack.
		dup, err := unix.Dup(stack.top())
		if err != nil {
			return -1, false, NewSyscallError("dup", err)
		}
		return dup, true, nil
	}
	if dirRequired && !lastWasDir {
		unix.Close(lastFd)
		return -1, false, &PathError{Op: "resolve", Path: p, Err: ErrNotDirectory}
	}
	return lastFd, lastWasDir, nil
}

// walkComponents advances stack through every component in queue, each of
// which must resolve to a directory (used by resolveParent, which only ever
// walks components strictly before the final one).
func walkComponents(stack *dirStack, queue *componentQueue) error {
	expansions := 0
	for !queue.empty() {
		part := queue.pop()
		switch classifyComponent(part) {
		case componentCurDir:
			continue
		case componentParentDir:
			if len(stack.fds) <= 1 {
				return &PathError{Op: "resolve", Path: part, Err: ErrBadPathResolution}
			}
			stack.pop()
			continue
		}

		childFd, err := openUnchecked(stack.top(), part, unix.O_PATH|unix.O_NOFOLLOW|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
		if err == nil {
			if err := stack.push(childFd); err != nil {
				unix.Close(childFd)
				return err
			}
			unix.Close(childFd)
			continue
		}

		symlink := isSymlinkErrno(err)
		if !symlink && isErrno(err, unix.ENOTDIR) {
			// O_NOFOLLOW|O_DIRECTORY on a symlink reports ENOTDIR rather
			// than ELOOP, so check what the name actually is.
			st, serr := fstatatUnchecked(stack.top(), part, false)
			symlink = serr == nil && st.Mode&unix.S_IFMT == unix.S_IFLNK
		}
		if !symlink {
			return convertErrorType(err)
		}

		target, rerr := readlinkUnchecked(stack.top(), part)
		if rerr != nil {
			return rerr
		}
		expansions++
		if expansions > maxSymlinkExpansions {
			return &PathError{Op: "resolve", Path: part, Err: ErrTooManySymlinks}
		}
		if abs := queue.spliceFront(target); abs {
			return &PathError{Op: "resolve", Path: part, Err: ErrBadPathResolution}
		}
	}
	return nil
}

// cleanComponentForDisplay renders a resolved path for error messages
// without leaking descriptor-stack internals; it never participates in
// actual resolution decisions.
func cleanComponentForDisplay(p string) string {
	return path.Clean("/" + p)[1:]
}
