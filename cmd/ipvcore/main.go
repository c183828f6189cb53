// Command ipvcore runs the identity journey engine: the HTTP API used by the
// frontend, the async credential consumer and offline map checks.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
