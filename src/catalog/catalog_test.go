package catalog

import (
	"strings"
	"testing"
)

func TestCatalog(t *testing.T) {
	c := New[string]("test")
	c.Register("b", func() string { return "bee" })
	c.Register("a", func() string { return "ay" })

	if got := strings.Join(c.Names(), ","); got != "a,b" {
		t.Errorf("Names() = %s", got)
	}
	v, err := c.Get("b")
	if err != nil || v != "bee" {
		t.Errorf("Get(b) = %q, %v", v, err)
	}
	if _, err := c.Get("c"); err == nil || !strings.Contains(err.Error(), "unknown c") {
		t.Errorf("Get(c) err = %v", err)
	}
}

func TestCatalogDuplicatePanics(t *testing.T) {
	c := New[int]("test")
	c.Register("x", func() int { return 1 })
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	c.Register("x", func() int { return 2 })
}
