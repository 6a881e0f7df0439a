package main

import (
	"os"

	"github.com/bryanwahyu/neurolint/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
