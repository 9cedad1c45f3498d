package dpmi

import "github.com/pkg/errors"

// Known error conditions.
var (
	ErrAllocation = errors.New("dpmi: failed to allocate dos memory")
	ErrMapping    = errors.New("dpmi: failed to map physical address")
)
