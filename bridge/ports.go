package bridge

import "sync"

// portAllocator hands out consecutive TCP ports for per-renderer
// AirPlay servers, starting at the configured base port. Released
// ports are reused.
type portAllocator struct {
	mu   sync.Mutex
	base int
	used map[int]bool
}

func newPortAllocator(base int) *portAllocator {
	return &portAllocator{
		base: base,
		used: make(map[int]bool),
	}
}

func (p *portAllocator) allocate() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	port := p.base
	for p.used[port] {
		port++
	}
	p.used[port] = true
	return port
}

func (p *portAllocator) release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.used, port)
}
