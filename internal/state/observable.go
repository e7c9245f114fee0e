package state

import "sync"

// Ticket fences a list load. Only the newest ticket issued by a container
// may apply its response.
type Ticket uint64

type listener[S any] struct {
	id uint64
	fn func(S)
}

// container serialises mutation of S and fans snapshots out to listeners.
// Listeners run after the lock is released so they may read or mutate the
// container again.
type container[S any] struct {
	mu      sync.RWMutex
	state   S
	version uint64
	copyOf  func(S, uint64) S

	lmu       sync.Mutex
	nextID    uint64
	listeners []listener[S]
}

func newContainer[S any](initial S, copyOf func(S, uint64) S) *container[S] {
	return &container[S]{state: initial, copyOf: copyOf}
}

func (c *container[S]) snapshot() S {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyOf(c.state, c.version)
}

// mutate applies fn under the write lock. When fn reports no change the
// version is kept and nobody is notified.
func (c *container[S]) mutate(fn func(*S) bool) bool {
	c.mu.Lock()
	if !fn(&c.state) {
		c.mu.Unlock()
		return false
	}
	c.version++
	snap := c.copyOf(c.state, c.version)
	c.mu.Unlock()

	c.notify(snap)
	return true
}

func (c *container[S]) subscribe(fn func(S)) func() {
	if fn == nil {
		return func() {}
	}
	c.lmu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listener[S]{id: id, fn: fn})
	c.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.lmu.Lock()
			defer c.lmu.Unlock()
			for i, l := range c.listeners {
				if l.id == id {
					c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *container[S]) notify(snap S) {
	c.lmu.Lock()
	ls := append([]listener[S](nil), c.listeners...)
	c.lmu.Unlock()
	for _, l := range ls {
		l.fn(snap)
	}
}

// fence hands out monotonically increasing tickets and remembers the newest.
type fence struct {
	mu     sync.Mutex
	issued Ticket
}

func (f *fence) next() Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued++
	return f.issued
}

func (f *fence) current(t Ticket) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return t == f.issued
}
