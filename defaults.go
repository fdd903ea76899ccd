// SPDX-License-Identifier: MIT

package capfs

import "github.com/creasty/defaults"

// defaultsSetter applies the `default:"..."` struct tags on v, the same
// mechanism ufsconfig.Config uses for its own defaulting, reused here for
// OpenOptions and CreateDirOptions so a zero-value struct literal still
// gets the documented default mode bits.
func defaultsSetter(v interface{}) error {
	return defaults.Set(v)
}
