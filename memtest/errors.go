package memtest

import "github.com/pkg/errors"

// ErrArgument is returned for an invalid bus width or chip count.
var ErrArgument = errors.New("memtest: invalid argument")
