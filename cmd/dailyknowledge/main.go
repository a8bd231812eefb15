package main

import (
	"context"
	"os"

	"DailyKnowledge/internal/cli"
)

func main() {
	printer := cli.NewPrinter()
	root := cli.NewRootCommand(printer)

	if err := root.ExecuteContext(context.Background()); err != nil {
		printer.Error("%s", cli.Describe(err))
		os.Exit(1)
	}
}
