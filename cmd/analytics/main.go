// Command analytics serves multi-view market analysis reports over HTTP and
// websocket, and renders them on the command line.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
