package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
)

const languagesKey = "languages"

// LanguageCache is a read-through cache of the language catalog. Entries
// expire after ttl; Invalidate drops them at once.
type LanguageCache struct {
	repo  repositories.LanguageRepository
	cache *expirable.LRU[string, []*entities.Language]
	group singleflight.Group
}

// NewLanguageCache creates a language cache over repo
func NewLanguageCache(repo repositories.LanguageRepository, ttl time.Duration) *LanguageCache {
	return &LanguageCache{
		repo:  repo,
		cache: expirable.NewLRU[string, []*entities.Language](1, nil, ttl),
	}
}

// List returns every language. The slice is shared; callers must not modify it.
func (c *LanguageCache) List(ctx context.Context) ([]*entities.Language, error) {
	if languages, ok := c.cache.Get(languagesKey); ok {
		return languages, nil
	}
	v, err, _ := c.group.Do(languagesKey, func() (interface{}, error) {
		languages, err := c.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		c.cache.Add(languagesKey, languages)
		return languages, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	return v.([]*entities.Language), nil
}

// GetByID returns the language with the given id
func (c *LanguageCache) GetByID(ctx context.Context, id int64) (*entities.Language, error) {
	languages, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range languages {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, fmt.Errorf("language %d: %w", id, domain.ErrNotFound)
}

// GetByTag returns the language with exactly this tag
func (c *LanguageCache) GetByTag(ctx context.Context, tag string) (*entities.Language, error) {
	languages, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range languages {
		if strings.EqualFold(l.Tag, tag) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("language %q: %w", tag, domain.ErrNotFound)
}

// Resolve maps a detected tag to a supported language. An exact tag match
// wins; otherwise "pt" resolves to the first language tagged "pt-*".
func (c *LanguageCache) Resolve(ctx context.Context, tag string) (*entities.Language, error) {
	if l, err := c.GetByTag(ctx, tag); err == nil {
		return l, nil
	}
	languages, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	primary, _, _ := strings.Cut(tag, "-")
	for _, l := range languages {
		p, _, _ := strings.Cut(l.Tag, "-")
		if strings.EqualFold(p, primary) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: unsupported language %q", domain.ErrNotFound, tag)
}

// Invalidate drops the cached catalog
func (c *LanguageCache) Invalidate() {
	c.cache.Purge()
}
