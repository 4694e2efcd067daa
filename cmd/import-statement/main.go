package main

import (
	"fmt"
	"os"

	"github.com/estateops/estate-backend/internal/cli"
)

func main() {
	flags := cli.ParseImportFlags()

	if err := cli.RunImport(flags); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
