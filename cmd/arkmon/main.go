package main

import (
	"fmt"
	"os"

	"github.com/function61/gokit/dynversion"
	"github.com/spf13/cobra"
)

func main() {
	app := &cobra.Command{
		Use:     os.Args[0],
		Short:   "ARK official server monitor",
		Version: dynversion.Version,
	}

	app.AddCommand(serveEntry())

	app.AddCommand(monitorEntry())

	app.AddCommand(favEntry())

	app.AddCommand(statsEntry())

	app.AddCommand(serversEntry())

	app.AddCommand(ratesEntry())

	exitIfError(app.Execute())
}

func exitIfError(err error) {
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func boolToCheckmark(input bool) string {
	if input {
		return "✓"
	} else {
		return "✗"
	}
}
