package main

import (
	"os"

	"github.com/brdoc/padessign/cli"
)

func main() {
	cli.Run(os.Args)
}
