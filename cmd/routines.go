package cmd

import (
	"fmt"
	"runtime"
	"sync"
)

// Run calls f(i) for every i in [0, n) on its own goroutine and waits for all
// of them. A panicking job is turned into an error for that index.
func Run(n int, f func(i int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer Recover(&errs[i])
			errs[i] = f(i)
		}()
	}
	wg.Wait()
	return errs
}

func Recover(err *error) {
	if r := recover(); r != nil {
		*err = HandlePanic(r)
	}
}

func HandlePanic(panic any) error {
	buf := make([]byte, 100000)
	n := runtime.Stack(buf, false)
	buf = buf[:n]

	log.WithField("stack", string(buf)).Error("job panicked")
	return fmt.Errorf("panic: %v", panic)
}
