// SPDX-License-Identifier: MIT

// Package capfs provides a capability-oriented filesystem API: every
// operation is reached through a Dir handle representing an already
// opened directory, and every path given to it is resolved inside the
// subtree rooted at that handle. There is no function in this package
// that accepts an absolute host path, except the small set gated on an
// ambient.Authority witness (see the capfs/ambient package).
//
// The sandboxing guarantee holds against ".." components, absolute-looking
// paths, and symbolic links (including symlinks whose target is only
// discovered mid-resolution) racing against a concurrent renamer of the
// underlying filesystem. It does not extend to the contents of files once
// opened, nor to already-open descriptors handed to other code.
package capfs
