package ui

import (
	"io"
	"os"
)

// OpenTTY opens the controlling terminal, so that questions can be asked even
// when stdin and stdout are redirected.
func OpenTTY() (io.ReadWriteCloser, error) {
	return os.OpenFile("/dev/tty", os.O_RDWR, 0)
}
