// Command libctl is the operator CLI for the document library: schema
// migration, index maintenance, CSV import and export, and API keys.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
