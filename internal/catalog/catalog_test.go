package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukerupert/reloop/internal/database"
	"github.com/dukerupert/reloop/internal/recycle"
	"github.com/dukerupert/reloop/internal/store"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Rewards) == 0 || len(c.Locations) == 0 || len(c.Blog) == 0 {
		t.Errorf("catalog sections empty: %d rewards, %d locations, %d posts", len(c.Rewards), len(c.Locations), len(c.Blog))
	}
	if c.Rates.PerItem("Computers") != recycle.DefaultRates["Computers"] {
		t.Errorf("computers rate = %d", c.Rates.PerItem("Computers"))
	}
	if c.Blog[0].PublishedAt.IsZero() {
		t.Error("expected published_at to parse")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	os.WriteFile(path, []byte("rewards:\n  - name: Sticker\n    point_cost: 5\n"), 0o644)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Rewards) != 1 || c.Rewards[0].Name != "Sticker" {
		t.Errorf("rewards = %+v", c.Rewards)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero cost", "rewards:\n  - name: Free\n    point_cost: 0\n"},
		{"blog without slug", "blog:\n  - title: T\n"},
		{"rates without other", "rates:\n  Phones: 10\n"},
		{"negative rate", "rates:\n  Other: -1\n"},
		{"bad yaml", "rewards: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c, _ := Load("")
	stores := Stores{
		Rewards:   store.NewRewardStore(db),
		Locations: store.NewLocationStore(db),
		Blog:      store.NewBlogStore(db),
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := c.Seed(ctx, stores, slog.Default()); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	if n, _ := stores.Rewards.Count(ctx); n != len(c.Rewards) {
		t.Errorf("rewards = %d, want %d", n, len(c.Rewards))
	}
	if n, _ := stores.Locations.Count(ctx); n != len(c.Locations) {
		t.Errorf("locations = %d, want %d", n, len(c.Locations))
	}
	if n, _ := stores.Blog.Count(ctx); n != len(c.Blog) {
		t.Errorf("posts = %d, want %d", n, len(c.Blog))
	}
}
