package converter

import "errors"

// Fatal conditions of a conversion run. Callers match them with errors.Is.
// An extension with no media mapping is not an error; the file is skipped.
var (
	ErrUnsupportedFallback  = errors.New("unsupported fallback type")
	ErrImageAdaptation      = errors.New("image adaptation failed")
	ErrArchiveTool          = errors.New("archive tool failed")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
