package providers

import (
	"io"
)

func flushResponse(resp io.ReadCloser) {
	io.Copy(io.Discard, resp) // nolint: errcheck
	resp.Close()
}
