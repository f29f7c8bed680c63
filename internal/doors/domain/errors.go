package doors

import "errors"

// ErrInvalidPayload indicates a sensor message that is not a JSON object.
var ErrInvalidPayload = errors.New("doors: invalid sensor payload")
