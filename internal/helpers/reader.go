package helpers

import "io"

// ReadAllAndClose reads at most limit bytes from r and closes it. A limit of
// zero or less reads everything.
func ReadAllAndClose(r io.ReadCloser, limit int64) ([]byte, error) {
	defer r.Close()
	if limit > 0 {
		return io.ReadAll(io.LimitReader(r, limit))
	}
	return io.ReadAll(r)
}
