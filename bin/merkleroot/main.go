// Command merkleroot prints the Merkle root of the mint whitelist, and the
// proof for a single address.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
