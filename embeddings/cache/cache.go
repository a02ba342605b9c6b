package cache

import (
	"container/list"
	"encoding/hex"
	"sync"

	"github.com/minio/highwayhash"
)

var hashKey = []byte("0123456789ABCDEF0123456789ABCDEF")

// Key hashes model and text into a fixed-size cache key.
func Key(model, text string) (string, error) {
	h, err := highwayhash.New(hashKey)
	if err != nil {
		return "", err
	}
	if _, err = h.Write([]byte(model)); err != nil {
		return "", err
	}
	if _, err = h.Write([]byte{0}); err != nil {
		return "", err
	}
	if _, err = h.Write([]byte(text)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// LRU is a bounded query-embedding cache.
type LRU struct {
	mu    sync.Mutex
	cap   int
	ll    *list.List
	items map[string]*list.Element
}

type entry struct {
	key string
	vec []float32
}

// NewLRU creates a cache; a non-positive capacity disables caching and
// returns nil, which all methods tolerate.
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		return nil
	}
	return &LRU{
		cap:   capacity,
		ll:    list.New(),
		items: make(map[string]*list.Element, capacity),
	}
}

func (c *LRU) Get(key string) ([]float32, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return cloneVec(el.Value.(*entry).vec), true
	}
	return nil, false
}

func (c *LRU) Add(key string, vec []float32) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*entry).vec = cloneVec(vec)
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&entry{key: key, vec: cloneVec(vec)})
	c.items[key] = el
	if c.ll.Len() > c.cap {
		back := c.ll.Back()
		if back != nil {
			c.ll.Remove(back)
			delete(c.items, back.Value.(*entry).key)
		}
	}
}

func cloneVec(vec []float32) []float32 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
