package validation

import "errors"

var (
	ErrInvalidFileType   = errors.New("invalid file type")
	ErrFileTooLarge      = errors.New("file size exceeds limit")
	ErrUnsupportedFormat = errors.New("unsupported raster format")
)
