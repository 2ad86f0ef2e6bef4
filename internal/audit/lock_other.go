//go:build !unix

package audit

import (
	"errors"
	"os"
)

// No advisory locking on this platform; Append degrades to a plain
// O_APPEND write.
func lockExclusive(f *os.File) (func(), error) {
	return nil, errors.New("file locking not supported on this platform")
}
