package cache

import (
	"testing"
	"time"
)

func TestMerchantCacheGetSet(t *testing.T) {
	c := New(time.Hour)
	key := Key{UserID: 1, Merchant: "acme", MerchantCode: "5999"}

	if _, ok := c.Get(key); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set(key, Suggestion{CategoryID: 7, CategoryName: "Shopping", Confidence: 0.9})
	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got.CategoryID != 7 || got.Confidence != 0.9 {
		t.Errorf("unexpected suggestion: %+v", got)
	}

	// Same merchant, different code is a distinct key.
	if _, ok := c.Get(Key{UserID: 1, Merchant: "acme", MerchantCode: "none"}); ok {
		t.Error("different merchant code should miss")
	}
}

func TestMerchantCacheExpiry(t *testing.T) {
	c := New(time.Minute)
	current := time.Now()
	c.now = func() time.Time { return current }

	key := Key{UserID: 1, Merchant: "acme", MerchantCode: "none"}
	c.Set(key, Suggestion{CategoryID: 1})

	current = current.Add(30 * time.Second)
	if _, ok := c.Get(key); !ok {
		t.Fatal("entry should still be live before TTL")
	}

	current = current.Add(2 * time.Minute)
	if _, ok := c.Get(key); ok {
		t.Fatal("entry should have expired")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be evicted on read, len=%d", c.Len())
	}
}

func TestMerchantCacheInvalidateMerchant(t *testing.T) {
	c := New(time.Hour)
	c.Set(Key{UserID: 1, Merchant: "acme", MerchantCode: "5999"}, Suggestion{CategoryID: 1})
	c.Set(Key{UserID: 1, Merchant: "acme", MerchantCode: "none"}, Suggestion{CategoryID: 2})
	c.Set(Key{UserID: 1, Merchant: "other", MerchantCode: "none"}, Suggestion{CategoryID: 3})
	c.Set(Key{UserID: 2, Merchant: "acme", MerchantCode: "none"}, Suggestion{CategoryID: 4})

	c.InvalidateMerchant(1, "acme")

	if _, ok := c.Get(Key{UserID: 1, Merchant: "acme", MerchantCode: "5999"}); ok {
		t.Error("invalidated entry still present")
	}
	if _, ok := c.Get(Key{UserID: 1, Merchant: "acme", MerchantCode: "none"}); ok {
		t.Error("invalidated entry still present")
	}
	if _, ok := c.Get(Key{UserID: 1, Merchant: "other", MerchantCode: "none"}); !ok {
		t.Error("unrelated merchant was invalidated")
	}
	if _, ok := c.Get(Key{UserID: 2, Merchant: "acme", MerchantCode: "none"}); !ok {
		t.Error("other user's entry was invalidated")
	}
}

func TestMerchantCacheClear(t *testing.T) {
	c := New(time.Hour)
	c.Set(Key{UserID: 1, Merchant: "a", MerchantCode: "none"}, Suggestion{})
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after Clear, len=%d", c.Len())
	}
}
