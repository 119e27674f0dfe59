package toolbox

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks mismatched vector lengths and malformed
	// persisted networks.
	ErrConfiguration = errors.New("configuration error")

	// ErrUsage marks calls made out of order, such as backpropagating before
	// the network has been fed forward.
	ErrUsage = errors.New("usage error")
)

func configPanic(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...)))
}

func usagePanic(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...)))
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
