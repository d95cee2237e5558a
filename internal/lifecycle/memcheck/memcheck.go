// Package memcheck is the Memory Checker: a FIFO admission gate between
// the Prelauncher and dispatch. Processing is strictly sequential, one
// item in flight at a time. The admission rule — comparing an
// AppPackage's RequiredMemory against a configured budget — is grounded
// on the reclaim-before-launch policy of original_source's MemoryChecker.
package memcheck

import (
	"sync"

	"github.com/webosose/sam-sub002/internal/log"
)

// Item is one admission request. Done is called exactly once, with an
// error set when RequiredMemory exceeds the available budget.
type Item struct {
	UID            string
	RequiredMemory int
	Done           func(error)
}

// ErrInsufficientMemory is returned (carrying the item's UID) when a
// launch is rejected for lack of headroom; callers map it to the
// launch error code table's memoryReclaim-flavored entry.
type ErrInsufficientMemory struct {
	UID            string
	RequiredMemory int
	AvailableMB    int
}

func (e *ErrInsufficientMemory) Error() string {
	return "insufficient memory to launch " + e.UID
}

// ErrCancelled is delivered to every queued item on CancelAll.
type ErrCancelled struct{ UID string }

func (e *ErrCancelled) Error() string {
	return "cancel all request"
}

// Checker is the sequential admission gate.
type Checker struct {
	availableMB int
	logger      log.Logger

	mu    sync.Mutex
	queue []Item
}

// New builds a Checker admitting launches against availableMB of budget.
func New(availableMB int, logger log.Logger) *Checker {
	if logger == nil {
		logger = log.Nop()
	}
	return &Checker{availableMB: availableMB, logger: logger}
}

// Submit enqueues item; if it is the only item in the queue, it is
// processed immediately.
func (c *Checker) Submit(item Item) {
	c.mu.Lock()
	c.queue = append(c.queue, item)
	lone := len(c.queue) == 1
	c.mu.Unlock()

	if lone {
		c.processNext()
	}
}

func (c *Checker) processNext() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		item := c.queue[0]
		c.mu.Unlock()

		var err error
		if item.RequiredMemory > c.availableMB {
			err = &ErrInsufficientMemory{UID: item.UID, RequiredMemory: item.RequiredMemory, AvailableMB: c.availableMB}
			c.logger.Warn("memory check rejected", "uid", item.UID, "required", item.RequiredMemory, "available", c.availableMB)
		}

		c.mu.Lock()
		c.queue = c.queue[1:]
		c.mu.Unlock()

		if item.Done != nil {
			item.Done(err)
		}
	}
}

// CancelAll fails every queued item with ErrCancelled and flushes the
// queue.
func (c *Checker) CancelAll() {
	c.mu.Lock()
	queued := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, item := range queued {
		if item.Done != nil {
			item.Done(&ErrCancelled{UID: item.UID})
		}
	}
}
