// Command unicorns cleans, aggregates and projects a dataset of unicorn
// companies.
package main

import (
	"os"

	"github.com/paveg/unicorns/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
