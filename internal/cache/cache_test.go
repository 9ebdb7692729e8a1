package cache_test

import (
	"testing"

	"github.com/sarn-lang/sarn/internal/cache"
)

func TestPutGetRoundTrip(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	key := cache.Key([]byte("source"), "x86_64-linux-gnu", 2)
	if _, hit, err := c.Get(key); err != nil || hit {
		t.Fatalf("expected a miss, got hit=%v err=%v", hit, err)
	}

	payload := []byte{0x7f, 'E', 'L', 'F'}
	if err := c.Put(key, payload); err != nil {
		t.Fatal(err)
	}
	got, hit, err := c.Get(key)
	if err != nil || !hit {
		t.Fatalf("expected a hit, got hit=%v err=%v", hit, err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload round trip: %v", got)
	}

	size, err := c.Size()
	if err != nil || size != uint64(len(payload)) {
		t.Errorf("size = %d, want %d", size, len(payload))
	}
}

func TestKeyCoversEveryInput(t *testing.T) {
	base := cache.Key([]byte("src"), "triple", 0)
	if cache.Key([]byte("src2"), "triple", 0) == base {
		t.Error("source bytes must affect the key")
	}
	if cache.Key([]byte("src"), "other", 0) == base {
		t.Error("target triple must affect the key")
	}
	if cache.Key([]byte("src"), "triple", 1) == base {
		t.Error("optimization level must affect the key")
	}
}

func TestPutReplaces(t *testing.T) {
	c, err := cache.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	key := cache.Key([]byte("x"), "t", 0)
	if err := c.Put(key, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(key, []byte("two")); err != nil {
		t.Fatal(err)
	}
	got, _, err := c.Get(key)
	if err != nil || string(got) != "two" {
		t.Errorf("replacement: %q, %v", got, err)
	}
}
