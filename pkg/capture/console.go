package capture

import "os"

// The standard streams as they were when the process started. Sessions
// never redirect them, so logs written to them are not mixed into another
// goroutine's captured solver output.
var consoleOut, consoleErr = consoleStreams()

// Stdout returns the process's standard output, unaffected by sessions.
func Stdout() *os.File {
	return consoleOut
}

// Stderr returns the process's standard error, unaffected by sessions.
func Stderr() *os.File {
	return consoleErr
}
