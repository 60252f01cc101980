package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dukerupert/reloop/internal/model"
)

type BlogStore struct {
	db *sql.DB
}

func NewBlogStore(db *sql.DB) *BlogStore {
	return &BlogStore{db: db}
}

func (s *BlogStore) Create(ctx context.Context, p model.BlogPost) (*model.BlogPost, error) {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO blog_posts (slug, title, author, summary, content, tags, published_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Title, p.Author, p.Summary, p.Content, string(tags), p.PublishedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert blog post %q: %w", p.Slug, ErrConflict)
		}
		return nil, fmt.Errorf("insert blog post: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	return &p, nil
}

// List returns post summaries, newest first. Content is left empty.
func (s *BlogStore) List(ctx context.Context) ([]model.BlogPost, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, slug, title, author, summary, tags, published_at FROM blog_posts ORDER BY published_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list blog posts: %w", err)
	}
	defer rows.Close()

	posts := []model.BlogPost{}
	for rows.Next() {
		var p model.BlogPost
		var tags string
		if err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.Author, &p.Summary, &tags, &p.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan blog post: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *BlogStore) GetBySlug(ctx context.Context, slug string) (*model.BlogPost, error) {
	var p model.BlogPost
	var tags string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, slug, title, author, summary, content, tags, published_at FROM blog_posts WHERE slug = ?`, slug,
	).Scan(&p.ID, &p.Slug, &p.Title, &p.Author, &p.Summary, &p.Content, &tags, &p.PublishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blog post: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &p, nil
}

func (s *BlogStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blog_posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count blog posts: %w", err)
	}
	return n, nil
}
