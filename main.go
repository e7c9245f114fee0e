// The main package for the crawler-console executable.
package main

import (
	"github.com/JakeFAU/crawler-console/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
