package cache

import "testing"

func TestKeyDeterministic(t *testing.T) {
	a, err := Key("text-embedding-3-small", "triphala")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	b, err := Key("text-embedding-3-small", "triphala")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if a != b {
		t.Fatalf("keys differ for same input: %q %q", a, b)
	}
	c, _ := Key("other-model", "triphala")
	if a == c {
		t.Fatalf("different model should produce a different key")
	}
	d, _ := Key("text-embedding-3-small", "ashwagandha")
	if a == d {
		t.Fatalf("different text should produce a different key")
	}
}

func TestKeySeparatesModelAndText(t *testing.T) {
	a, _ := Key("ab", "c")
	b, _ := Key("a", "bc")
	if a == b {
		t.Fatalf("model/text boundary must be part of the key")
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRU(2)
	c.Add("a", []float32{1})
	c.Add("b", []float32{2})
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should be cached")
	}
	// a was just touched, so adding c evicts b.
	c.Add("c", []float32{3})
	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should survive")
	}
	if v, ok := c.Get("c"); !ok || v[0] != 3 {
		t.Fatalf("c should be cached with its vector")
	}
}

func TestLRUClonesVectors(t *testing.T) {
	c := NewLRU(2)
	vec := []float32{1, 2}
	c.Add("a", vec)
	vec[0] = 99
	got, ok := c.Get("a")
	if !ok || got[0] != 1 {
		t.Fatalf("cache should hold its own copy, got %v", got)
	}
	got[1] = 99
	again, _ := c.Get("a")
	if again[1] != 2 {
		t.Fatalf("callers must not mutate cached vectors")
	}
}

func TestNilLRUTolerated(t *testing.T) {
	var c *LRU
	c.Add("a", []float32{1})
	if _, ok := c.Get("a"); ok {
		t.Fatalf("nil cache should never hit")
	}
	if NewLRU(0) != nil {
		t.Fatalf("non-positive capacity should return nil")
	}
}
