// SPDX-License-Identifier: MIT

package archive

import (
	"io"

	"github.com/ferrocap/capfs"
	"github.com/gammazero/workerpool"
)

// CopyTree copies every entry under src (a path relative to srcDir) into
// dst (relative to dstDir), creating directories as needed. cap-std's Dir
// only exposes single-file and single-directory primitives, and real
// embedders (container/backup tooling) need a tree copy on top of them.
// Regular files are copied concurrently via a worker pool; directory
// creation happens synchronously ahead of time so workers never
// race to create the same parent.
func CopyTree(srcDir *capfs.Dir, src string, dstDir *capfs.Dir, dst string, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 4
	}
	pool := workerpool.New(concurrency)

	var firstErr error
	var once errOnce

	err := capfs.WalkDir(srcDir, src, func(path string, d capfs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, rerr := relPath(src, path)
		if rerr != nil {
			return rerr
		}
		destPath := joinRel(dst, rel)

		if d.IsDir() {
			if destPath == "" || destPath == "." {
				return nil
			}
			return dstDir.MkdirAll(destPath, 0o755)
		}

		pool.Submit(func() {
			if err := copyOneFile(srcDir, path, dstDir, destPath); err != nil {
				once.set(&firstErr, err)
			}
		})
		return nil
	})
	pool.StopWait()
	if err != nil {
		return err
	}
	return firstErr
}

func copyOneFile(srcDir *capfs.Dir, srcPath string, dstDir *capfs.Dir, dstPath string) error {
	in, err := srcDir.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	o := capfs.NewOpenOptions()
	o.Write, o.Create, o.Truncate = true, true, true
	mode, ok := info.Permissions().Mode()
	if ok {
		o.Mode = capfs.FileMode(mode)
	}
	out, err := dstDir.OpenFile(dstPath, o)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func relPath(base, path string) (string, error) {
	if path == base {
		return ".", nil
	}
	if len(path) > len(base) && path[:len(base)] == base && path[len(base)] == '/' {
		return path[len(base)+1:], nil
	}
	return path, nil
}

func joinRel(base, rel string) string {
	if rel == "." || rel == "" {
		return base
	}
	if base == "" || base == "." {
		return rel
	}
	return base + "/" + rel
}
