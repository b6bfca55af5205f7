// Command catalogimport runs catalog imports, manages import profiles and
// applies schema migrations from the command line.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
