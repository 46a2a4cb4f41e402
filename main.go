package main

import (
	"fmt"
	"os"

	"github.com/stencilhq/stencil/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// toolVersion is stamped at build time through -ldflags.
var toolVersion = "dev"

// main executes the stencil command-line application.
func main() {
	if executionError := cli.Execute(toolVersion); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
