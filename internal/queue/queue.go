// Package queue implements the bounded worker pool draining the
// filesystem watcher's work items into the pipeline driver (spec §5:
// "a bounded worker pool (default four) draining a bounded work
// queue").
//
// Grounded on utils/codebaseindex/scan.go's scanRepository: a buffered
// work channel, a fixed-size pool of worker goroutines ranging over it
// with sync.WaitGroup, and a close-then-Wait shutdown sequence. The
// collector goroutine there becomes the pipeline driver's Outcome
// callback here — there is no separate result-collection stage because
// each driver run already produces its terminal state synchronously.
package queue

import (
	"context"
	"sync"

	"github.com/jav-tidy/javtidy/internal/pipeline"
)

// Item is one unit of work: a source file path to run through the
// pipeline driver.
type Item struct {
	SourcePath string
}

// Pool drains a bounded channel of Items with a fixed number of worker
// goroutines, each owning one pipeline.Driver run to completion before
// picking up the next item (spec §5: "Each worker owns one driver
// state machine at a time and runs it to terminal before picking up
// the next item").
type Pool struct {
	driver *pipeline.Driver
	onDone func(Item, pipeline.Outcome)
	items  chan Item
	wg     sync.WaitGroup
}

// NewPool builds a Pool with the given worker count and a queue
// capacity of capacity. onDone is called from a worker goroutine for
// every completed item; it must not block significantly or panic.
func NewPool(driver *pipeline.Driver, workers, capacity int, onDone func(Item, pipeline.Outcome)) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if capacity <= 0 {
		capacity = 100
	}
	p := &Pool{
		driver: driver,
		onDone: onDone,
		items:  make(chan Item, capacity),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(context.Background())
	}
	return p
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for item := range p.items {
		outcome := p.driver.Run(ctx, item.SourcePath)
		if p.onDone != nil {
			p.onDone(item, outcome)
		}
	}
}

// Submit enqueues an item, blocking if the queue is at capacity.
func (p *Pool) Submit(item Item) {
	p.items <- item
}

// Close stops accepting new items and waits for every in-flight and
// queued item to finish.
func (p *Pool) Close() {
	close(p.items)
	p.wg.Wait()
}
