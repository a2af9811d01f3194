// Package parallel implements the worker pool `flare16x batch` uses to
// run the decode pipeline (load, locate, OCR, process, export,
// crosshair restamp) across a directory of bitmap dumps concurrently.
package parallel

import (
	"runtime"
	"sync"
)

type (
	// WorkerFunc hands a decode job to the pool; when the pool has a
	// single worker it runs inline instead of queueing.
	WorkerFunc func(func())
	// WaitFunc blocks until every queued decode has finished; done
	// additionally stops the pool from accepting further jobs.
	WaitFunc func(done bool)
	// CancelFunc stops the pool from accepting further decode jobs.
	CancelFunc func()
)

// Pool dispatches decode jobs from `flare16x batch` across numWorkers
// goroutines, or runs them inline when numWorkers is 1.
type Pool struct {
	wg     sync.WaitGroup
	Do     WorkerFunc
	Wait   WaitFunc
	Cancel CancelFunc
}

// Start spins up a Pool with numWorkers goroutines (GOMAXPROCS if
// numWorkers < 1) ready to take decode jobs from `flare16x batch`.
func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		Do: func(f func()) {
			f()
		},
		Wait:   func(bool) {},
		Cancel: func() {},
	}

	if numWorkers > 1 {
		workChan := make(chan func(), numWorkers)

		for i := 0; i < numWorkers; i++ {
			pool.wg.Add(1)
			go func() {
				defer pool.wg.Done()
				for {
					f, ok := <-workChan
					if !ok {
						return
					}
					f()
				}
			}()
		}

		pool.Do = func(f func()) {
			workChan <- f
		}

		pool.Wait = func(done bool) {
			if done {
				pool.Cancel()
			}
			pool.wg.Wait()
		}
		pool.Cancel = sync.OnceFunc(func() { close(workChan) })
	}

	return pool
}
