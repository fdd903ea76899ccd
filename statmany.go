// SPDX-License-Identifier: MIT

package capfs

import "golang.org/x/sync/errgroup"

// StatMany stats every name in names concurrently, grounded on the
// fan-out-and-collect-first-error use of golang.org/x/sync/errgroup to run concurrent
// per-file work in server/backup/archiver.go. It waits for every Stat to
// finish; if any of them failed, it returns the first error and a nil
// slice.
func StatMany(d *Dir, names []string) ([]Metadata, error) {
	results := make([]Metadata, len(names))
	var g errgroup.Group
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			m, err := d.Stat(name)
			if err != nil {
				return err
			}
			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
