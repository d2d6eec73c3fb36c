package tracker

import "github.com/oklog/ulid/v2"

// NewRunID returns a lexically sortable run identifier.
func NewRunID() string {
	return ulid.Make().String()
}
