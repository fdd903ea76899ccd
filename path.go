// SPDX-License-Identifier: MIT

// basename, endsWithDot, and splitPath were adapted from
// `go/src/os/path.go` and `go/src/os/path_unix.go`.

package capfs

import "strings"

// componentKind classifies a single path component.
type componentKind int

const (
	componentNormal componentKind = iota
	componentCurDir
	componentParentDir
	componentRoot
	componentPrefix
)

// classifyComponent reports what kind of path component part is. Since this
// package only targets Unix-family hosts, there is no drive-letter/UNC
// "Prefix" kind to recognize. A leading "/" is not seen here either:
// splitComponents reports it as isAbs, and the resolver rejects such paths
// since the sandbox has no concept of an absolute root. The result is
// always Normal, CurDir, or ParentDir.
func classifyComponent(part string) componentKind {
	switch part {
	case ".":
		return componentCurDir
	case "..":
		return componentParentDir
	default:
		return componentNormal
	}
}

// splitComponents breaks path into its slash-separated components, recording
// whether the original path requested directory semantics (a trailing "/"
// or trailing "/.") and whether the first component is an absolute-looking
// root.
func splitComponents(path string) (parts []string, isAbs bool, dirRequired bool) {
	isAbs = strings.HasPrefix(path, "/")
	dirRequired = requiresDir(path)
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, isAbs, dirRequired
	}
	for _, p := range strings.Split(trimmed, "/") {
		if p == "" {
			continue
		}
		parts = append(parts, p)
	}
	return parts, isAbs, dirRequired
}

// requiresDir reports whether path ends in "/" or in "/." — both force the
// resolver to treat the final component as requiring a directory result,
// even when the caller's OpenOptions didn't otherwise ask for one
//.
func requiresDir(path string) bool {
	if path == "" {
		return false
	}
	if strings.HasSuffix(path, "/") {
		return true
	}
	return endsWithDot(path)
}

// endsWithDot reports whether the final component of path is ".".
func endsWithDot(path string) bool {
	if path == "." {
		return true
	}
	if len(path) >= 2 && path[len(path)-1] == '.' && path[len(path)-2] == '/' {
		return true
	}
	return false
}

// stripDirSuffix removes trailing slashes from p but never reduces a
// non-root path to empty.
func stripDirSuffix(p string) string {
	for len(p) > 1 && p[len(p)-1] == '/' {
		p = p[:len(p)-1]
	}
	return p
}

// appendDirSuffix appends a single trailing slash, used to force a
// syscall-level "must be a directory" distinction on backends where it
// would otherwise only survive in the trailing slash.
func appendDirSuffix(p string) string {
	if strings.HasSuffix(p, "/") {
		return p
	}
	return p + "/"
}

// basename removes trailing slashes and the leading directory name from a
// path, returning only the final component.
func basename(name string) string {
	i := len(name) - 1
	for ; i > 0 && name[i] == '/'; i-- {
		name = name[:i]
	}
	for i--; i >= 0; i-- {
		if name[i] == '/' {
			name = name[i+1:]
			break
		}
	}
	return name
}

// splitPath returns the parent directory and base name of path, in the
// relative sense this package operates in ("." is used when there is no
// parent component in path itself).
func splitPath(path string) (dir, base string) {
	dirname := "."
	for len(path) > 1 && path[0] == '/' && path[1] == '/' {
		path = path[1:]
	}
	i := len(path) - 1
	for ; i > 0 && path[i] == '/'; i-- {
		path = path[:i]
	}
	basename := path
	for i--; i >= 0; i-- {
		if path[i] == '/' {
			if i == 0 {
				dirname = path[:1]
			} else {
				dirname = path[:i]
			}
			basename = path[i+1:]
			break
		}
	}
	return dirname, basename
}
