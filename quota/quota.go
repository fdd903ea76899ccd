// SPDX-License-Identifier: MIT

// Package quota wraps a *capfs.Dir with a size budget: bytes written and
// files removed through the wrapper are tracked against a configured limit,
// and CanFit reports whether a further write would stay within it. The
// wrapper counts writes; it does not reject them.
package quota

import (
	"sync/atomic"
	"time"

	"github.com/ferrocap/capfs"
	"github.com/go-co-op/gocron"
)

// Dir wraps a capfs.Dir with a size budget. With a limit of -1, CanFit
// reports false for every size; with a limit of 0, it reports true for
// every size.
type Dir struct {
	*capfs.Dir

	limit atomic.Int64
	usage atomic.Int64
}

// New wraps dir with a quota, initializing usage to -1 ("not yet
// calculated") so the first CanFit call always allows the write.
func New(dir *capfs.Dir, limit int64) *Dir {
	q := &Dir{Dir: dir}
	q.limit.Store(limit)
	q.usage.Store(-1)
	return q
}

func (q *Dir) Limit() int64          { return q.limit.Load() }
func (q *Dir) SetLimit(n int64) int64 { return q.limit.Swap(n) }
func (q *Dir) Usage() int64          { return q.usage.Load() }
func (q *Dir) SetUsage(n int64) int64 { return q.usage.Swap(n) }

// Add adjusts the tracked usage total by delta, which may be negative. The
// total is clamped at zero rather than allowed to go negative, since a
// miscounted removal should never make future writes look falsely cheap.
func (q *Dir) Add(delta int64) int64 {
	usage := q.Usage()
	if usage == -1 {
		return -1
	}
	if usage+delta < 0 {
		q.usage.Store(0)
		return 0
	}
	return q.usage.Add(delta)
}

// CanFit reports whether writing an additional size bytes would stay within
// the quota.
func (q *Dir) CanFit(size int64) bool {
	switch limit := q.Limit(); limit {
	case -1:
		return false
	case 0:
		return true
	default:
		usage := q.Usage()
		if usage == -1 {
			return true
		}
		return usage+size <= limit
	}
}

// Remove removes name and, if it was a regular file, deducts its size from
// the tracked usage.
func (q *Dir) Remove(name string) error {
	m, err := q.Lstat(name)
	if err != nil {
		return err
	}
	if err := q.Dir.Remove(name); err != nil {
		return err
	}
	if m.FileType().IsFile() {
		q.Add(-m.Len())
	}
	return nil
}

// OpenFile opens name and, when the caller is writing, wraps the result in
// a countingFile so bytes written through it are added to usage as they
// land, instead of only being reconciled at the next full recompute.
func (q *Dir) OpenFile(name string, opts *capfs.OpenOptions) (capfs.File, error) {
	f, err := q.Dir.OpenFile(name, opts)
	if err != nil {
		return nil, err
	}
	if opts.Write || opts.Append || opts.Create || opts.CreateNew {
		return &countingFile{File: f, dir: q}, nil
	}
	return f, nil
}

// countingFile wraps a capfs.File, adding each successful write's byte
// count to the owning Dir's usage total.
type countingFile struct {
	capfs.File
	dir *Dir
}

func (f *countingFile) Write(p []byte) (int, error) {
	n, err := f.File.Write(p)
	f.dir.Add(int64(n))
	return n, err
}

func (f *countingFile) WriteAt(p []byte, off int64) (int, error) {
	n, err := f.File.WriteAt(p, off)
	f.dir.Add(int64(n))
	return n, err
}

// Scheduler periodically recomputes a Dir's usage from scratch by walking
// it, correcting any drift the incremental Add-based tracking has
// accumulated. It is built on go-co-op/gocron.
type Scheduler struct {
	cron *gocron.Scheduler
}

// NewScheduler starts a background recompute of dir's usage every interval.
func NewScheduler(dir *Dir, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.Every(interval).Do(func() {
		var total int64
		_ = capfs.WalkDir(dir.Dir, ".", func(path string, d capfs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			info, ierr := d.Info()
			if ierr == nil {
				total += info.Size()
			}
			return nil
		})
		dir.SetUsage(total)
	})
	s.StartAsync()
	return &Scheduler{cron: s}
}

// Stop halts the background recompute.
func (s *Scheduler) Stop() { s.cron.Stop() }
