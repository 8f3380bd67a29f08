package browser

import "errors"

// Errors returned by Page implementations. Timeouts are not listed here;
// they wrap context.DeadlineExceeded so callers can use errors.Is directly.
var (
	ErrElementNotFound = errors.New("element not found")
	ErrNotEditable     = errors.New("element is not editable")
	ErrNotClickable    = errors.New("element is not clickable")
	ErrOptionNotFound  = errors.New("option not found")
	ErrClosed          = errors.New("browser handle is closed")
)
