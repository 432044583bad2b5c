// Command admin manages quiz accounts and the question workbook from a terminal.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(defaultCLI()).Execute(); err != nil {
		os.Exit(1)
	}
}
