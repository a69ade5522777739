package main

import (
	"os"

	"github.com/bizopsbank/feeder/cmd"
	"github.com/bizopsbank/feeder/internal"
)

var logger = internal.GetLogger("feeder_main")

func main() {
	if err := cmd.Main(os.Args); err != nil {
		logger.Fatal(err)
	}
}
