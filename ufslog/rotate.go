// SPDX-License-Identifier: MIT

package ufslog

import (
	"io"
	"os"
	"path/filepath"

	"github.com/NYTimes/logrotate"
)

// newRotatedFile opens (creating parent directories as needed) a
// logrotate-managed file at path using NYTimes/logrotate.
func newRotatedFile(path string) (io.Writer, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	w, err := logrotate.NewFile(path)
	if err != nil {
		return nil, err
	}
	return w.File, nil
}
