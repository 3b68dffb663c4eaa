// Agentfold runs event-sourced LLM agent sessions on top of Message
// DB: every session is an append-only stream, and all derived state is
// projected from it. The CLI starts and continues sessions, inspects
// streams, and serves the HTTP API.
package main

import (
	"errors"
	"fmt"
	"os"
)

// errUsage marks argument and flag errors so they exit with code 2
// instead of the generic failure code 1.
var errUsage = errors.New("usage error")

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
