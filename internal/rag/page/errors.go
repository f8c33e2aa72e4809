package page

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotHTML is wrapped by the *FetchError returned for a 2xx response whose
// content type is not HTML.
var ErrNotHTML = errors.New("not an html document")

// FetchError reports a page that could not be retrieved. Status is zero for
// transport failures.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("fetch %s: HTTP %d %s", e.URL, e.Status, http.StatusText(e.Status))
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
