package extractor

import (
	"errors"
	"fmt"
)

var (
	errMissingIdentity = errors.New("neither id nor name present")
	errMissingPower    = errors.New("power value missing")
	errMissingRating   = errors.New("transformer rating missing")
)

// RowError records why one data row produced no entity. Row is the 1-based
// data row index, not counting the header.
type RowError struct {
	Sheet string
	Row   int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("sheet %q row %d: %v", e.Sheet, e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
