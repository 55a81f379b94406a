// # cmd/ssd/main.go
package main

import (
	"os"

	"ssd/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
