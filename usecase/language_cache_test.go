package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/satriahrh/lingualoop/adapters/memory"
	"github.com/satriahrh/lingualoop/domain"
	"github.com/satriahrh/lingualoop/domain/entities"
	"github.com/satriahrh/lingualoop/domain/repositories"
)

type countingLanguages struct {
	repositories.LanguageRepository
	lists int
}

func (c *countingLanguages) List(ctx context.Context) ([]*entities.Language, error) {
	c.lists++
	return c.LanguageRepository.List(ctx)
}

func TestLanguageCache(t *testing.T) {
	ctx := context.Background()
	repo := &countingLanguages{LanguageRepository: memory.NewStore().Languages}
	for _, l := range []*entities.Language{
		{Name: "English", Tag: "en"},
		{Name: "Portuguese (Brazil)", Tag: "pt-BR"},
	} {
		if err := repo.Create(ctx, l); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	cache := NewLanguageCache(repo, 0)

	tests := []struct {
		tag      string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{"pt", "pt-BR"},
		{"pt-PT", "pt-BR"},
	}
	for _, tt := range tests {
		got, err := cache.Resolve(ctx, tt.tag)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tt.tag, err)
		}
		if got.Tag != tt.expected {
			t.Errorf("Resolve(%q) = %q, want %q", tt.tag, got.Tag, tt.expected)
		}
	}

	if _, err := cache.Resolve(ctx, "fr"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unsupported tag, got %v", err)
	}
	if repo.lists != 1 {
		t.Errorf("Expected one repository read, got %d", repo.lists)
	}

	if err := repo.Create(ctx, &entities.Language{Name: "French", Tag: "fr"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := cache.GetByTag(ctx, "fr"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected stale cache before Invalidate, got %v", err)
	}
	cache.Invalidate()
	if _, err := cache.GetByTag(ctx, "fr"); err != nil {
		t.Errorf("Expected fr after Invalidate, got %v", err)
	}
	if repo.lists != 2 {
		t.Errorf("Expected two repository reads, got %d", repo.lists)
	}
}
