// SPDX-License-Identifier: MIT

// Package archive implements the bulk tree operations this module adds
// beyond cap-std's per-file API: CopyTree, ImportTree, and Create/Unarchive.
package archive

import (
	"archive/tar"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/ferrocap/capfs"
	"github.com/gammazero/workerpool"
	"github.com/juju/ratelimit"
	"github.com/klauspost/pgzip"
	"github.com/mholt/archiver/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// CompressionLevel selects the gzip tradeoff used by Create.
type CompressionLevel int

const (
	CompressionBestSpeed CompressionLevel = iota
	CompressionBestCompression
	CompressionNone
)

func (c CompressionLevel) pgzipLevel() int {
	switch c {
	case CompressionNone:
		return pgzip.NoCompression
	case CompressionBestCompression:
		return pgzip.BestCompression
	default:
		return pgzip.BestSpeed
	}
}

// Options configures Create.
type Options struct {
	// Ignore is a gitignore-syntax string of paths to exclude, evaluated
	// only when Files is empty.
	Ignore string
	// Files restricts the archive to exactly these paths (relative to the
	// Dir being archived), taking priority over Ignore.
	Files []string
	// Level picks the gzip compression tradeoff.
	Level CompressionLevel
	// WriteLimitBytesPerSec throttles the compressed output stream via a
	// token bucket, 0 disables throttling.
	WriteLimitBytesPerSec int64
}

// Create streams a gzip-compressed tar of dir (respecting opts) into w.
func Create(ctx context.Context, dir *capfs.Dir, w io.Writer, opts Options) error {
	if opts.WriteLimitBytesPerSec > 0 {
		w = ratelimit.Writer(w, ratelimit.NewBucketWithRate(float64(opts.WriteLimitBytesPerSec), opts.WriteLimitBytesPerSec))
	}

	gw, err := pgzip.NewWriterLevel(w, opts.Level.pgzipLevel())
	if err != nil {
		return err
	}
	_ = gw.SetConcurrency(1<<20, 1)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	var matcher *ignore.GitIgnore
	if len(opts.Files) == 0 && opts.Ignore != "" {
		matcher = ignore.CompileIgnoreLines(strings.Split(opts.Ignore, "\n")...)
	}
	fileSet := map[string]bool{}
	for _, f := range opts.Files {
		fileSet[strings.Trim(f, "/")] = true
	}

	return capfs.WalkDir(dir, ".", func(path string, d capfs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if path == "." {
			return nil
		}
		rel := strings.TrimPrefix(path, "./")
		if len(fileSet) > 0 {
			if !fileSet[rel] && !hasFilePrefix(fileSet, rel) {
				if d.IsDir() {
					return capfs.SkipDir
				}
				return nil
			}
		} else if matcher != nil && matcher.MatchesPath(rel) {
			if d.IsDir() {
				return capfs.SkipDir
			}
			return nil
		}
		return addTarEntry(tw, dir, rel, d)
	})
}

func hasFilePrefix(set map[string]bool, rel string) bool {
	for f := range set {
		if strings.HasPrefix(f, rel+"/") || strings.HasPrefix(rel, f+"/") {
			return true
		}
	}
	return false
}

func addTarEntry(tw *tar.Writer, dir *capfs.Dir, rel string, d capfs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = rel
	if d.IsDir() {
		hdr.Name += "/"
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if d.IsDir() {
		return nil
	}
	f, err := d.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

// ErrUnknownArchive is returned when archiver.Identify cannot recognize the
// stream's format.
var ErrUnknownArchive = archiver.ErrNoMatch

// Unarchive identifies r's archive format (tar, tar.gz, zip, and the rest
// of archiver/v4's supported formats) and extracts every member into dir,
// writing each member through dir's sandboxed resolver (Dir.OpenFile /
// Dir.MkdirAll). Leading and trailing slashes are trimmed from member
// names, and members whose name starts with "../" (such as
// "../../etc/passwd") are skipped; any other escaping name, such as
// "a/../../x", is rejected by the resolver with ErrBadPathResolution,
// which Unarchive returns. nameHint is used only to help
// format sniffing when the stream itself is ambiguous (as
// archiver.Identify's filename argument is).
func Unarchive(ctx context.Context, dir *capfs.Dir, nameHint string, r io.Reader) error {
	if nameHint == "" {
		nameHint = "archive.tar.gz"
	}
	format, input, err := archiver.Identify(nameHint, r)
	if err != nil {
		return err
	}
	ex, ok := format.(archiver.Extractor)
	if !ok {
		return ErrUnknownArchive
	}

	pool := workerpool.New(4)
	defer pool.StopWait()

	var firstErr error
	var once errOnce

	err = ex.Extract(ctx, input, nil, func(ctx context.Context, f archiver.File) error {
		name := memberName(f)
		name = strings.TrimSuffix(strings.TrimPrefix(name, "/"), "/")
		if name == "" || name == "." || strings.HasPrefix(name, "../") {
			return nil
		}
		if f.IsDir() {
			return dir.MkdirAll(name, 0o755)
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return err
		}
		mode := f.Mode()
		pool.Submit(func() {
			if err := writeExtractedFile(dir, name, data, mode); err != nil {
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

// memberName recovers an archive member's path: some formats only
// populate the original header in f.Sys(), not in f.Name().
func memberName(f archiver.File) string {
	switch sys := f.Sys().(type) {
	case *tar.Header:
		return sys.Name
	default:
		return f.NameInArchive
	}
}

func writeExtractedFile(dir *capfs.Dir, name string, data []byte, mode capfs.FileMode) error {
	if parent := parentDir(name); parent != "" {
		if err := dir.MkdirAll(parent, 0o755); err != nil {
			return err
		}
	}
	o := capfs.NewOpenOptions()
	o.Write, o.Create, o.Truncate, o.Mode = true, true, true, mode
	f, err := dir.OpenFile(name, o)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

func parentDir(name string) string {
	i := strings.LastIndexByte(name, '/')
	if i < 0 {
		return ""
	}
	return name[:i]
}

// errOnce records only the first error reported to it, used by Unarchive's
// worker pool since later extraction failures are less useful than the
// first one encountered, and since workers call set concurrently.
type errOnce struct {
	mu  sync.Mutex
	hit bool
}

func (e *errOnce) set(dst *error, err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hit {
		return
	}
	e.hit = true
	*dst = err
}
