// SPDX-License-Identifier: MIT

//go:build unix && !ufs_debug

package capfs

// racyAssertsEnabled mirrors cap-primitives' `no_racy_asserts` feature: the
// default build pays nothing for the extra verification assert_debug.go
// performs under the ufs_debug build tag.
const racyAssertsEnabled = false

func racyAssertOpenInsideRoot(rootFd int, resultFd int, path string) {}
