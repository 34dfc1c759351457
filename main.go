// The main package for the laborsync executable.
package main

import (
	"github.com/JakeFAU/laborsync/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
