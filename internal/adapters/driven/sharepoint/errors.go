package sharepoint

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/ocrhook/internal/core/domain"
)

// errBodyLimit caps how much of an error response body is kept for the
// error message.
const errBodyLimit = 2048

// remoteError converts a non-2xx repository response into a typed
// domain error. 401/403 additionally match domain.IsAuthFailed and 404
// matches domain.IsNotFound through the RemoteError status code.
func remoteError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
	return &domain.RemoteError{
		Service:    "sharepoint",
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
		URL:        resp.Request.URL.String(),
	}
}

// notFound wraps domain.ErrNotFound with what was being looked up.
func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
}
