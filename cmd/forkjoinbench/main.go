// Command forkjoinbench is a small demo/bench harness for the forkjoin
// library. It is not part of the library's shipped API: it exists to
// exercise a pool end to end against a handful of classic
// divide-and-conquer fixtures and print their timing.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "forkjoinbench",
		Usage: "run divide-and-conquer fixtures against the forkjoin runtime",
		Commands: []*cli.Command{
			runCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		log.SetFlags(0)
		os.Exit(1)
	}
}
