package main

import (
	"fmt"
	"time"

	forkjoin "github.com/Swind/go-forkjoin"
	"github.com/urfave/cli/v2"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "run a fixture against a pool and print its timing",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "fixture",
				Aliases: []string{"f"},
				Value:   "fib",
				Usage:   "fixture to run: fib, nqueens, or parallel-increment",
			},
			&cli.StringFlag{
				Name:    "variant",
				Aliases: []string{"v"},
				Value:   "busy",
				Usage:   "pool variant: busy or lazy",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Value:   4,
				Usage:   "worker count",
			},
			&cli.IntFlag{
				Name:  "n",
				Value: 30,
				Usage: "fixture size (fib argument, board size, or increment length)",
			},
			&cli.IntFlag{
				Name:  "grain",
				Value: 100,
				Usage: "grain size, parallel-increment fixture only",
			},
			&cli.BoolFlag{
				Name:  "worker-stats",
				Usage: "print per-worker deque depth and stack usage after the run",
			},
		},

		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	fixture := c.String("fixture")
	variant := c.String("variant")
	workers := c.Int("workers")
	n := c.Int("n")
	grain := c.Int("grain")

	opts := []forkjoin.Option{forkjoin.WithName("forkjoinbench"), forkjoin.WithWorkers(workers)}

	var pool forkjoin.Pool
	switch variant {
	case "busy", "":
		pool = forkjoin.NewBusyPool(opts...)
	case "lazy":
		pool = forkjoin.NewLazyPool(opts...)
	default:
		return cli.Exit(fmt.Sprintf("unknown pool variant %q", variant), 1)
	}
	defer pool.Shutdown()

	start := time.Now()

	switch fixture {
	case "fib":
		result, err := forkjoin.SyncWait(pool, func(c *forkjoin.Control) (int, error) {
			return fib(c, n)
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("fib failed: %v", err), 1)
		}
		fmt.Printf("fib(%d) = %d (%s, %s pool, %d workers)\n", n, result, time.Since(start), variant, workers)

	case "nqueens":
		result, err := forkjoin.SyncWait(pool, func(c *forkjoin.Control) (int, error) {
			return nqueensCount(c, n, nil)
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("nqueens failed: %v", err), 1)
		}
		fmt.Printf("nqueens(%d) = %d solutions (%s, %s pool, %d workers)\n", n, result, time.Since(start), variant, workers)

	case "parallel-increment":
		data := make([]int, n)
		for i := range data {
			data[i] = i
		}
		_, err := forkjoin.SyncWait(pool, func(c *forkjoin.Control) (struct{}, error) {
			return struct{}{}, parallelIncrement(c, data, grain)
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("parallel-increment failed: %v", err), 1)
		}
		fmt.Printf("parallel-increment(len=%d, grain=%d): data[0]=%d data[n-1]=%d (%s, %s pool, %d workers)\n",
			n, grain, data[0], data[n-1], time.Since(start), variant, workers)

	default:
		return cli.Exit(fmt.Sprintf("unknown fixture %q", fixture), 1)
	}

	if c.Bool("worker-stats") {
		for _, ws := range pool.WorkerStats() {
			fmt.Printf("  worker %d: queued=%d stack=%d/%d bytes failure=%v\n", ws.ID, ws.Queued, ws.StackUsed, ws.StackCap, ws.HasFailure)
		}
	}

	return nil
}
