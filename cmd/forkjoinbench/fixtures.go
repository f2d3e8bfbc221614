package main

import (
	forkjoin "github.com/Swind/go-forkjoin"
)

// fib computes the nth Fibonacci number by forking the n-1 call and running
// the n-2 call inline with Call, falling back to a sequential base case for
// small n.
func fib(c *forkjoin.Control, n int) (int, error) {
	if n < 2 {
		return n, nil
	}
	a := forkjoin.Fork(c, func(c *forkjoin.Control) (int, error) { return fib(c, n-1) })
	b, err := forkjoin.Call(c, func(c *forkjoin.Control) (int, error) { return fib(c, n-2) })
	if err != nil {
		return 0, err
	}
	results, err := forkjoin.Join(c, a)
	if err != nil {
		return 0, err
	}
	return results[0] + b, nil
}

// nqueensCount counts the number of solutions to the n-queens problem on an
// n*n board, forking over the choice of queen placement in the next row.
func nqueensCount(c *forkjoin.Control, n int, placed []int) (int, error) {
	row := len(placed)
	if row == n {
		return 1, nil
	}

	var futures []forkjoin.Future[int]
	for col := 0; col < n; col++ {
		if !queenSafe(placed, col) {
			continue
		}
		next := append(append([]int{}, placed...), col)
		futures = append(futures, forkjoin.Fork(c, func(c *forkjoin.Control) (int, error) {
			return nqueensCount(c, n, next)
		}))
	}

	results, err := forkjoin.Join(c, futures...)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, r := range results {
		total += r
	}
	return total, nil
}

func queenSafe(placed []int, col int) bool {
	row := len(placed)
	for r, c := range placed {
		if c == col {
			return false
		}
		if row-r == col-c || row-r == c-col {
			return false
		}
	}
	return true
}

// parallelIncrement adds 1 to every element of data, forking one child per
// chunk of size grain (or running the whole range inline on the calling
// worker when grain is <= 0 or covers or exceeds len(data)).
func parallelIncrement(c *forkjoin.Control, data []int, grain int) error {
	n := len(data)
	if grain <= 0 {
		grain = n
	}
	if grain >= n {
		for i := range data {
			data[i]++
		}
		return nil
	}

	var futures []forkjoin.Future[struct{}]
	for start := 0; start < n; start += grain {
		end := start + grain
		if end > n {
			end = n
		}
		chunk := data[start:end]
		futures = append(futures, forkjoin.Fork(c, func(c *forkjoin.Control) (struct{}, error) {
			for i := range chunk {
				chunk[i]++
			}
			return struct{}{}, nil
		}))
	}

	_, err := forkjoin.Join(c, futures...)
	return err
}
