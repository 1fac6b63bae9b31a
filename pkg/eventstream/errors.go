package eventstream

import "errors"

// ErrNilEvent indicates a nil event was provided to a publisher.
var ErrNilEvent = errors.New("nil event")
