//go:build linux

package capture

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

var streams = [...]int{unix.Stdout, unix.Stderr}

// fdRedirect points the stdout and stderr descriptors at a pipe, so output
// from C libraries and child processes is captured too.
type fdRedirect struct {
	saved [len(streams)]int
	r, w  *os.File
	buf   bytes.Buffer
	done  chan struct{}
}

// consoleStreams duplicates the standard descriptors before any session can
// point them elsewhere.
func consoleStreams() (*os.File, *os.File) {
	dup := func(fd int, name string, fallback *os.File) *os.File {
		nfd, err := unix.Dup(fd)
		if err != nil {
			return fallback
		}
		unix.CloseOnExec(nfd)
		return os.NewFile(uintptr(nfd), name)
	}
	return dup(unix.Stdout, "/dev/stdout", os.Stdout), dup(unix.Stderr, "/dev/stderr", os.Stderr)
}

func startRedirect() (redirector, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("capture: pipe: %w", err)
	}
	f := &fdRedirect{r: r, w: w, done: make(chan struct{})}

	for i, fd := range streams {
		saved, err := unix.Dup(fd)
		if err != nil {
			f.restore(i)
			return nil, fmt.Errorf("capture: dup %d: %w", fd, err)
		}
		f.saved[i] = saved
		if err := unix.Dup3(int(w.Fd()), fd, 0); err != nil {
			unix.Close(saved)
			f.restore(i)
			return nil, fmt.Errorf("capture: dup3 %d: %w", fd, err)
		}
	}

	go func() {
		io.Copy(&f.buf, r)
		close(f.done)
	}()
	return f, nil
}

// restore puts back the first n redirected descriptors.
func (f *fdRedirect) restore(n int) error {
	var first error
	for i := 0; i < n; i++ {
		if err := unix.Dup3(f.saved[i], streams[i], 0); err != nil && first == nil {
			first = err
		}
		unix.Close(f.saved[i])
	}
	if n < len(streams) {
		f.w.Close()
		f.r.Close()
	}
	return first
}

func (f *fdRedirect) stop() ([]byte, error) {
	err := f.restore(len(streams))
	f.w.Close()
	<-f.done
	f.r.Close()
	if err != nil {
		return f.buf.Bytes(), fmt.Errorf("capture: restore: %w", err)
	}
	return f.buf.Bytes(), nil
}
