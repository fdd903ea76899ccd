// SPDX-License-Identifier: MIT

package capfs

import (
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// DetectContentType sniffs f's content type from its leading bytes,
// grounded on gabriel-vasile/mimetype's content-sniffing approach for the same
// purpose in its file-upload handling. It reads at most mimetype's
// detection window and seeks back to the start, so it is safe to call
// before the caller does its own reading of f.
func DetectContentType(f File) (string, error) {
	buf := make([]byte, 3072)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			return "", serr
		}
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	mt := mimetype.Detect(buf[:n])
	return mt.String(), nil
}
