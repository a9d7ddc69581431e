// ./main.go
package main

import (
	"github.com/sasakama-code/taintcore/cmd"
)

// main is the entry point for the taintcore CLI.
func main() {
	// Execute the root command defined in the cmd package.
	cmd.Execute()
}
