package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/Skotchmaster/skincare_shop/pkg/events"
	"github.com/Skotchmaster/skincare_shop/pkg/logging"
	"github.com/Skotchmaster/skincare_shop/services/catalog/internal/cache"
	"github.com/Skotchmaster/skincare_shop/services/catalog/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/catalog/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/catalog/internal/transport"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrSearchDisabled = errors.New("search disabled")
)

type ProductCache interface {
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	Set(ctx context.Context, p *models.Product) error
	Invalidate(ctx context.Context, slugs ...string) error
}

type SearchIndex interface {
	Upsert(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error)
}

// CatalogService owns product writes; Cache, Index and Events are optional.
type CatalogService struct {
	Repo   *repo.GormRepo
	Cache  ProductCache
	Index  SearchIndex
	Events events.Publisher
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	return p, err
}

func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "catalog.get_by_slug")

	if s.Cache != nil {
		p, err := s.Cache.GetBySlug(ctx, slug)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			l.Warn("cache_get_error", "slug", slug, "error", err)
		}
	}

	p, err := s.Repo.GetProductBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product %q", ErrNotFound, slug)
	}
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, p); err != nil {
			l.Warn("cache_set_error", "slug", slug, "error", err)
		}
	}
	return p, nil
}

func (s *CatalogService) GetProducts(ctx context.Context, category string, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.GetProducts(ctx, strings.TrimSpace(category), offset, limit)
}

func (s *CatalogService) SearchProducts(ctx context.Context, query string, offset, limit int) (int64, []models.Product, error) {
	if s.Index == nil {
		return 0, nil, ErrSearchDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, fmt.Errorf("%w: q is required", ErrValidation)
	}
	return s.Index.Search(ctx, query, offset, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	prod := &models.Product{
		Title:        strings.TrimSpace(req.Title),
		Slug:         strings.TrimSpace(req.Slug),
		Description:  req.Description,
		ListPrice:    req.ListPrice,
		SellingPrice: req.SellingPrice,
		Stock:        req.Stock,
		Images:       pq.StringArray(nonNil(req.Images)),
		Categories:   pq.StringArray(normalizeCategories(req.Categories)),
	}
	if prod.Slug == "" {
		prod.Slug = Slugify(prod.Title)
	} else {
		prod.Slug = Slugify(prod.Slug)
	}

	if err := validate(prod); err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, prod.Slug, uuid.Nil); err != nil {
		return nil, err
	}

	if err := s.Repo.CreateProduct(ctx, prod); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, prod.Slug)
		}
		return nil, err
	}

	s.afterWrite(ctx, "product_created", prod)
	return prod, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, req transport.PatchProductRequest, id uuid.UUID) (*models.Product, error) {
	prod, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	oldSlug := prod.Slug

	if req.Title != nil {
		prod.Title = strings.TrimSpace(*req.Title)
	}
	if req.Slug != nil {
		prod.Slug = Slugify(*req.Slug)
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.ListPrice != nil {
		prod.ListPrice = *req.ListPrice
	}
	if req.SellingPrice != nil {
		prod.SellingPrice = *req.SellingPrice
	}
	if req.Stock != nil {
		prod.Stock = *req.Stock
	}
	if req.Images != nil {
		prod.Images = pq.StringArray(nonNil(*req.Images))
	}
	if req.Categories != nil {
		prod.Categories = pq.StringArray(normalizeCategories(*req.Categories))
	}

	if err := validate(prod); err != nil {
		return nil, err
	}
	if prod.Slug != oldSlug {
		if err := s.ensureSlugFree(ctx, prod.Slug, prod.ID); err != nil {
			return nil, err
		}
	}

	if err := s.Repo.SaveProduct(ctx, prod); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, prod.Slug)
		}
		return nil, err
	}

	s.invalidate(ctx, oldSlug, prod.Slug)
	s.afterWrite(ctx, "product_updated", prod)
	return prod, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	prod, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: product %s", ErrNotFound, id)
		}
		return err
	}

	l := logging.FromContext(ctx).With("svc", "catalog.delete")
	s.invalidate(ctx, prod.Slug)
	if s.Index != nil {
		if err := s.Index.Delete(ctx, id); err != nil {
			l.Warn("es_delete_error", "product_id", id, "error", err)
		}
	}
	events.Emit(ctx, s.Events, events.TopicProduct, id.String(), events.Event{
		"type":       "product_deleted",
		"product_id": id,
	})
	return nil
}

// RefreshProduct drops the cached copy of a product changed outside the catalog
// and reindexes it from the database.
func (s *CatalogService) RefreshProduct(ctx context.Context, id uuid.UUID, slug string) error {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if slug != "" {
			s.invalidate(ctx, slug)
		}
		return nil
	}
	if err != nil {
		return err
	}

	s.invalidate(ctx, p.Slug)
	if s.Index != nil {
		if err := s.Index.Upsert(ctx, p); err != nil {
			return fmt.Errorf("reindex %s: %w", id, err)
		}
	}
	return nil
}

// HandleEvent is the product_events handler; only stock changes from orders need work.
func (s *CatalogService) HandleEvent(ctx context.Context, _ string, ev events.Event) error {
	if ev["type"] != events.TypeProductStockChanged {
		return nil
	}
	raw, _ := ev["product_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: product_id %q", ErrValidation, raw)
	}
	slug, _ := ev["slug"].(string)

	logging.FromContext(ctx).Info("stock_changed", "product_id", id, "delta", ev["delta"])
	return s.RefreshProduct(ctx, id, slug)
}

func (s *CatalogService) ensureSlugFree(ctx context.Context, slug string, except uuid.UUID) error {
	taken, err := s.Repo.SlugTaken(ctx, slug, except)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%w: slug %q already in use", ErrConflict, slug)
	}
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, slugs ...string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, slugs...); err != nil {
		logging.FromContext(ctx).Warn("cache_invalidate_error", "slugs", slugs, "error", err)
	}
}

func (s *CatalogService) afterWrite(ctx context.Context, eventType string, prod *models.Product) {
	if s.Index != nil {
		if err := s.Index.Upsert(ctx, prod); err != nil {
			logging.FromContext(ctx).Warn("es_index_error", "product_id", prod.ID, "error", err)
		}
	}
	events.Emit(ctx, s.Events, events.TopicProduct, prod.ID.String(), events.Event{
		"type":          eventType,
		"product_id":    prod.ID,
		"slug":          prod.Slug,
		"title":         prod.Title,
		"selling_price": prod.SellingPrice.StringFixed(2),
		"stock":         prod.Stock,
	})
}

func validate(p *models.Product) error {
	switch {
	case p.Title == "":
		return fmt.Errorf("%w: title is required", ErrValidation)
	case p.Slug == "":
		return fmt.Errorf("%w: slug is empty", ErrValidation)
	case p.ListPrice.IsNegative() || p.SellingPrice.IsNegative():
		return fmt.Errorf("%w: prices cannot be negative", ErrValidation)
	case p.SellingPrice.GreaterThan(p.ListPrice):
		return fmt.Errorf("%w: selling price exceeds list price", ErrValidation)
	case p.Stock < 0:
		return fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	return nil
}

// Slugify lowercases s and joins its alphanumeric runs with single hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if b.Len() > 0 && !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func normalizeCategories(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, c := range in {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
