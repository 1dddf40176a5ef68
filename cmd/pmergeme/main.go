package main

import (
	"os"

	"github.com/wyfcoding/pmergeme/cmd/pmergeme/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
