package ingest

import "errors"

var (
	// ErrMissingFilename is returned when an upload arrives without a filename.
	ErrMissingFilename = errors.New("missing filename")
	// ErrUnsupportedFormat is returned for extensions outside csv/xlsx/xls.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrPayloadTooLarge is returned when an upload exceeds the size cap.
	ErrPayloadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrJobNotFound is returned for tenant-scoped job lookups that match nothing.
	ErrJobNotFound = errors.New("upload job not found")
)
