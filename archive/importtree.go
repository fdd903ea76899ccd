// SPDX-License-Identifier: MIT

package archive

import (
	"io"
	"os"
	"path/filepath"

	"github.com/ferrocap/capfs"
	"github.com/gammazero/workerpool"
	"github.com/karrick/godirwalk"
)

// ImportTree copies a host directory tree (hostSrc, reached via ambient
// authority, e.g. ambient.OpenDir's path) into dst inside dstDir. It walks
// the host side with karrick/godirwalk — whose Dirent already carries the
// mode bits godirwalk infers from raw getdents(2) buffers, avoiding a
// second lstat per entry — and revalidates every destination path through
// dstDir's sandboxed resolver, so the host-side scan is purely read-only
// discovery and never itself decides where a write lands.
func ImportTree(hostSrc string, dstDir *capfs.Dir, dst string, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 4
	}
	pool := workerpool.New(concurrency)
	var firstErr error
	var once errOnce

	err := godirwalk.Walk(hostSrc, &godirwalk.Options{
		Unsorted:            true,
		FollowSymbolicLinks: false,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			rel, err := filepath.Rel(hostSrc, osPathname)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			destPath := joinRel(dst, rel)

			if de.IsDir() {
				if destPath == "" || destPath == "." {
					return nil
				}
				return dstDir.MkdirAll(destPath, 0o755)
			}
			if !de.IsRegular() {
				// Symlinks and special files are intentionally skipped:
				// importing a symlink target from the host is an ambient
				// read decision this function doesn't make on its own.
				return nil
			}

			pool.Submit(func() {
				if err := importOneHostFile(osPathname, dstDir, destPath); err != nil {
					once.set(&firstErr, err)
				}
			})
			return nil
		},
	})
	pool.StopWait()
	if err != nil {
		return err
	}
	return firstErr
}

func importOneHostFile(hostPath string, dstDir *capfs.Dir, destPath string) error {
	in, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	o := capfs.NewOpenOptions()
	o.Write, o.Create, o.Truncate, o.Mode = true, true, true, info.Mode()
	out, err := dstDir.OpenFile(destPath, o)
	if err != nil {
		return err
	}
	defer out.Close()

	buf := make([]byte, 32*1024)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return rerr
		}
	}
}
