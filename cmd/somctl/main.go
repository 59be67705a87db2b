// Command somctl runs analyses, inspects history and manages the
// observation store from the command line.
package main

import (
	"os"

	"github.com/turtacn/EconSOM/internal/app"
	"github.com/turtacn/EconSOM/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(app.NewCLIBackend); err != nil {
		os.Exit(1)
	}
}

//Personal.AI order the ending
