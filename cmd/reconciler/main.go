package main

import (
	"fmt"
	"os"

	"reconciler/internal/cli"
	"reconciler/pkg/utils"
)

func main() {
	err := cli.NewRootCommand().Execute()
	utils.L().Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
