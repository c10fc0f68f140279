// Command domainctl is the operator CLI: migrations, on-demand sweeps, live
// quotes and searches, and development tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
