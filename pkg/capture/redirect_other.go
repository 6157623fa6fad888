//go:build !linux

package capture

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// varRedirect swaps the os.Stdout and os.Stderr variables. Output written
// straight to the descriptors is not captured.
type varRedirect struct {
	stdout, stderr *os.File
	r, w           *os.File
	buf            bytes.Buffer
	done           chan struct{}
}

// consoleStreams keeps the original files; sessions only swap the
// variables.
func consoleStreams() (*os.File, *os.File) {
	return os.Stdout, os.Stderr
}

func startRedirect() (redirector, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("capture: pipe: %w", err)
	}
	v := &varRedirect{stdout: os.Stdout, stderr: os.Stderr, r: r, w: w, done: make(chan struct{})}
	os.Stdout, os.Stderr = w, w

	go func() {
		io.Copy(&v.buf, r)
		close(v.done)
	}()
	return v, nil
}

func (v *varRedirect) stop() ([]byte, error) {
	os.Stdout, os.Stderr = v.stdout, v.stderr
	v.w.Close()
	<-v.done
	v.r.Close()
	return v.buf.Bytes(), nil
}
