package mcpserver

import (
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/p-blackswan/questplan/internal/auth"
)

// entry is a doubly linked list node.
type entry struct {
	key  auth.Principal
	srv  *mcp.Server
	prev *entry
	next *entry
}

// serverCache keeps the most recently used per-principal servers so that
// repeated stateless requests do not rebuild the tool set. Get, put and
// eviction are O(1).
type serverCache struct {
	mu       sync.Mutex
	capacity int
	items    map[auth.Principal]*entry
	head     *entry // most recently used (sentinel)
	tail     *entry // least recently used (sentinel)
}

func newServerCache(capacity int) *serverCache {
	if capacity < 1 {
		capacity = 1
	}
	head, tail := &entry{}, &entry{}
	head.next, tail.prev = tail, head
	return &serverCache{
		capacity: capacity,
		items:    make(map[auth.Principal]*entry, capacity),
		head:     head,
		tail:     tail,
	}
}

// getOrBuild returns the cached server for p, building and caching it on a
// miss. It reports whether an older entry was evicted.
func (c *serverCache) getOrBuild(p auth.Principal, build func() *mcp.Server) (*mcp.Server, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[p]; ok {
		c.unlink(e)
		c.pushFront(e)
		return e.srv, false
	}

	evicted := false
	if len(c.items) >= c.capacity {
		victim := c.tail.prev
		c.unlink(victim)
		delete(c.items, victim.key)
		evicted = true
	}
	e := &entry{key: p, srv: build()}
	c.items[p] = e
	c.pushFront(e)
	return e.srv, evicted
}

func (c *serverCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// principals lists cached keys from most to least recently used.
func (c *serverCache) principals() []auth.Principal {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]auth.Principal, 0, len(c.items))
	for cur := c.head.next; cur != c.tail; cur = cur.next {
		out = append(out, cur.key)
	}
	return out
}

// caller must hold the lock for the list operations below.

func (c *serverCache) unlink(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev, e.next = nil, nil
}

func (c *serverCache) pushFront(e *entry) {
	e.next = c.head.next
	e.prev = c.head
	c.head.next.prev = e
	c.head.next = e
}
