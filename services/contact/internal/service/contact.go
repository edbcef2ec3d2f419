package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Skotchmaster/skincare_shop/pkg/events"
	"github.com/Skotchmaster/skincare_shop/pkg/logging"
	"github.com/Skotchmaster/skincare_shop/services/contact/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/contact/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/contact/internal/transport"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("enquiry not found")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Store interface {
	Create(ctx context.Context, e *models.Enquiry) error
	List(ctx context.Context, status models.Status, offset, limit int) (int64, []models.Enquiry, error)
	Resolve(ctx context.Context, id string, now time.Time) (*models.Enquiry, error)
}

type ContactService struct {
	Store  Store
	Events events.Publisher
	Now    func() time.Time
}

func (s *ContactService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *ContactService) Submit(ctx context.Context, req transport.EnquiryRequest) (*models.Enquiry, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Message = strings.TrimSpace(req.Message)
	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	req.SkinType = strings.ToLower(strings.TrimSpace(req.SkinType))
	if req.Kind == "" {
		req.Kind = string(models.KindContact)
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	e := &models.Enquiry{
		Kind:      models.Kind(req.Kind),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     strings.TrimSpace(req.Phone),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   req.Message,
		Status:    models.StatusNew,
		CreatedAt: s.now(),
	}
	// skin details only make sense for a consultation
	if e.Kind == models.KindConsultation {
		e.SkinType = req.SkinType
		e.Concerns = normalizeConcerns(req.Concerns)
	}

	if err := s.Store.Create(ctx, e); err != nil {
		logging.FromContext(ctx).With("svc", "contact.submit").
			Error("submit_error", "status", 500, "error", err)
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicEnquiry, e.ID.Hex(), events.Event{
		"type":       "enquiry_received",
		"enquiry_id": e.ID.Hex(),
		"kind":       string(e.Kind),
		"name":       e.Name,
		"email":      e.Email,
		"subject":    e.Subject,
	})
	return e, nil
}

func (s *ContactService) List(ctx context.Context, status string, offset, limit int) (int64, []models.Enquiry, error) {
	st := models.Status(strings.ToLower(status))
	switch st {
	case "", models.StatusNew, models.StatusResolved:
	default:
		return 0, nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.Store.List(ctx, st, offset, limit)
}

func (s *ContactService) Resolve(ctx context.Context, id string) (*models.Enquiry, error) {
	e, err := s.Store.Resolve(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return e, nil
}

func normalizeConcerns(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
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
