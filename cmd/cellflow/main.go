// cellflow evaluates the cells of a sheet file reactively.
package main

import (
	"os"

	"github.com/askiada/go-cellflow/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
