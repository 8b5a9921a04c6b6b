package dashboard

import (
	"testing"
)

func TestNewController_Validation(t *testing.T) {
	src := newFakeSource(t, `[]`)

	tests := []struct {
		name string
		cfg  func(*Config)
	}{
		{"unknown chart", func(c *Config) { c.Charts = []string{"perfChart"} }},
		{"unknown filter mode", func(c *Config) { c.FilterMode = "hybrid" }},
		{"unknown table", func(c *Config) { c.Table = "grid" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.cfg(&cfg)
			if _, err := NewController(cfg, src, 0); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := NewController(DefaultConfig(), nil, 0); err == nil {
		t.Error("expected error for nil source")
	}
}

func TestController_Acquire(t *testing.T) {
	c := newTestController(t, DefaultConfig(), newFakeSource(t, `[]`))

	s, created := c.Acquire("")
	if !created || s.ID == "" {
		t.Fatalf("expected a new session, got created=%v id=%q", created, s.ID)
	}

	again, created := c.Acquire(s.ID)
	if created || again != s {
		t.Error("expected the existing session")
	}

	other, created := c.Acquire("unknown-id")
	if !created || other.ID == "unknown-id" || other.ID == s.ID {
		t.Errorf("expected a fresh session with a new ID, got %q", other.ID)
	}
}

func TestController_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewController(DefaultConfig(), newFakeSource(t, `[]`), 2)
	if err != nil {
		t.Fatal(err)
	}

	first := c.NewSession()
	second := c.NewSession()
	if _, ok := c.Session(first.ID); !ok {
		t.Fatal("first session should be cached")
	}
	third := c.NewSession()

	if _, ok := c.Session(second.ID); ok {
		t.Error("least recently used session should be evicted")
	}
	if _, ok := c.Session(first.ID); !ok {
		t.Error("recently used session should be kept")
	}
	if _, ok := c.Session(third.ID); !ok {
		t.Error("newest session should be kept")
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 sessions, got %d", c.Len())
	}
}

func TestController_NewSessionIsEmpty(t *testing.T) {
	c := newTestController(t, DefaultConfig(), newFakeSource(t, `[]`))
	s := c.NewSession()
	if s.Loaded() {
		t.Error("new session should not be loaded")
	}
	for _, ch := range s.Charts() {
		if !ch.Empty {
			t.Errorf("%s should start empty", ch.ID)
		}
	}
}
