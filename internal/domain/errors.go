package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrSourceUnreadable    = errors.New("table source unreadable")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrAggregateFrozen     = errors.New("aggregate is frozen")
	ErrUploadFailed        = errors.New("file upload to storage failed")
)
