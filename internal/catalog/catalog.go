// Package catalog loads the reference data the service ships with:
// drop-off locations, the reward catalog, blog posts and recycling rates.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dukerupert/reloop/internal/model"
	"github.com/dukerupert/reloop/internal/recycle"
	"github.com/dukerupert/reloop/internal/store"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

type RewardSeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	PointCost   int    `yaml:"point_cost"`
}

type PostSeed struct {
	Slug        string    `yaml:"slug"`
	Title       string    `yaml:"title"`
	Author      string    `yaml:"author"`
	Summary     string    `yaml:"summary"`
	Content     string    `yaml:"content"`
	Tags        []string  `yaml:"tags"`
	PublishedAt time.Time `yaml:"published_at"`
}

type Catalog struct {
	Rates     recycle.Rates    `yaml:"rates"`
	Rewards   []RewardSeed     `yaml:"rewards"`
	Locations []model.Location `yaml:"locations"`
	Blog      []PostSeed       `yaml:"blog"`
}

// Load reads the catalog at path, or the embedded default when path is
// empty.
func Load(path string) (*Catalog, error) {
	data := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for _, r := range c.Rewards {
		if r.Name == "" || r.PointCost <= 0 {
			return nil, fmt.Errorf("reward %q: name and positive point_cost required", r.Name)
		}
	}
	for _, p := range c.Blog {
		if p.Slug == "" || p.Title == "" {
			return nil, fmt.Errorf("blog post %q: slug and title required", p.Slug)
		}
	}
	for cat, pts := range c.Rates {
		if pts <= 0 {
			return nil, fmt.Errorf("rate %q: points must be positive", cat)
		}
	}
	if len(c.Rates) > 0 {
		if _, ok := c.Rates[recycle.CategoryOther]; !ok {
			return nil, fmt.Errorf("rates: %q category required", recycle.CategoryOther)
		}
	}
	return &c, nil
}

type Stores struct {
	Rewards   *store.RewardStore
	Locations *store.LocationStore
	Blog      *store.BlogStore
}

// Seed inserts each section of c into its table when that table is empty,
// so it is safe to run on every start.
func (c *Catalog) Seed(ctx context.Context, s Stores, logger *slog.Logger) error {
	if n, err := s.Rewards.Count(ctx); err != nil {
		return err
	} else if n == 0 {
		for _, r := range c.Rewards {
			if _, err := s.Rewards.Create(ctx, model.Reward{
				Name: r.Name, Description: r.Description, Category: r.Category, PointCost: r.PointCost, Active: true,
			}); err != nil {
				return fmt.Errorf("seed reward %q: %w", r.Name, err)
			}
		}
		logger.Info("seeded rewards", "count", len(c.Rewards))
	}

	if n, err := s.Locations.Count(ctx); err != nil {
		return err
	} else if n == 0 {
		for _, l := range c.Locations {
			if _, err := s.Locations.Create(ctx, l); err != nil {
				return fmt.Errorf("seed location %q: %w", l.Name, err)
			}
		}
		logger.Info("seeded locations", "count", len(c.Locations))
	}

	if n, err := s.Blog.Count(ctx); err != nil {
		return err
	} else if n == 0 {
		for _, p := range c.Blog {
			if _, err := s.Blog.Create(ctx, model.BlogPost{
				Slug: p.Slug, Title: p.Title, Author: p.Author, Summary: p.Summary,
				Content: p.Content, Tags: p.Tags, PublishedAt: p.PublishedAt,
			}); err != nil {
				return fmt.Errorf("seed blog post %q: %w", p.Slug, err)
			}
		}
		logger.Info("seeded blog posts", "count", len(c.Blog))
	}
	return nil
}
