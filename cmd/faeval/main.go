package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Evaluation completed
	ExitGateFailed = 1 // An accuracy threshold was not met
	ExitError      = 2 // Usage, configuration or strict-mode input error
)

// TestFailureError indicates that the evaluation completed but an accuracy
// threshold requested on the command line was not met.
type TestFailureError struct {
	Message string
}

func (e *TestFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var testFailureErr *TestFailureError
		if errors.As(err, &testFailureErr) {
			os.Exit(ExitGateFailed)
		}

		os.Exit(ExitError)
	}
}
