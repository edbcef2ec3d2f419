package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Skotchmaster/skincare_shop/pkg/events"
	"github.com/Skotchmaster/skincare_shop/services/contact/internal/models"
	"github.com/Skotchmaster/skincare_shop/services/contact/internal/repo"
	"github.com/Skotchmaster/skincare_shop/services/contact/internal/transport"
)

type memStore struct {
	items []models.Enquiry
}

func (m *memStore) Create(_ context.Context, e *models.Enquiry) error {
	e.ID = primitive.NewObjectID()
	m.items = append(m.items, *e)
	return nil
}

func (m *memStore) List(_ context.Context, status models.Status, offset, limit int) (int64, []models.Enquiry, error) {
	var out []models.Enquiry
	for _, e := range m.items {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if offset > len(out) {
		offset = len(out)
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return total, out[offset:end], nil
}

func (m *memStore) Resolve(_ context.Context, id string, now time.Time) (*models.Enquiry, error) {
	for i := range m.items {
		if m.items[i].ID.Hex() == id {
			if m.items[i].Status == models.StatusNew {
				m.items[i].Status = models.StatusResolved
				m.items[i].ResolvedAt = &now
			}
			e := m.items[i]
			return &e, nil
		}
	}
	return nil, repo.ErrNotFound
}

func newService() (*ContactService, *memStore, *events.Recorder) {
	store := &memStore{}
	rec := &events.Recorder{}
	return &ContactService{Store: store, Events: rec}, store, rec
}

func TestSubmit_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  transport.EnquiryRequest
	}{
		{"missing name", transport.EnquiryRequest{Email: "a@b.in", Message: "hi"}},
		{"missing email", transport.EnquiryRequest{Name: "A", Message: "hi"}},
		{"bad email", transport.EnquiryRequest{Name: "A", Email: "nope", Message: "hi"}},
		{"blank message", transport.EnquiryRequest{Name: "A", Email: "a@b.in", Message: "   "}},
		{"unknown kind", transport.EnquiryRequest{Kind: "spam", Name: "A", Email: "a@b.in", Message: "hi"}},
		{"unknown skin type", transport.EnquiryRequest{Kind: "consultation", Name: "A", Email: "a@b.in", Message: "hi", SkinType: "scaly"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, store, rec := newService()

			_, err := svc.Submit(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, store.items)
			assert.Empty(t, rec.Events())
		})
	}
}

func TestSubmit_Contact(t *testing.T) {
	svc, store, rec := newService()

	e, err := svc.Submit(context.Background(), transport.EnquiryRequest{
		Name: " Asha ", Email: "Asha@Example.com", Subject: "Order", Message: "Where is my parcel?",
		SkinType: "dry", Concerns: []string{"acne"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.KindContact, e.Kind)
	assert.Equal(t, "Asha", e.Name)
	assert.Equal(t, "asha@example.com", e.Email)
	assert.Equal(t, models.StatusNew, e.Status)
	assert.Empty(t, e.SkinType)
	assert.Empty(t, e.Concerns)
	assert.Len(t, store.items, 1)
	assert.Equal(t, []string{"enquiry_received"}, rec.Types(events.TopicEnquiry))
}

func TestSubmit_Consultation(t *testing.T) {
	svc, _, _ := newService()

	e, err := svc.Submit(context.Background(), transport.EnquiryRequest{
		Kind: "Consultation", Name: "Asha", Email: "asha@example.com", Message: "Routine advice",
		SkinType: "Oily", Concerns: []string{"Acne", " acne", "pigmentation", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, models.KindConsultation, e.Kind)
	assert.Equal(t, "oily", e.SkinType)
	assert.Equal(t, []string{"acne", "pigmentation"}, e.Concerns)
}

func TestListAndResolve(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.Now = func() time.Time { return at }
		e, err := svc.Submit(ctx, transport.EnquiryRequest{Name: "A", Email: "a@b.in", Message: "hi"})
		require.NoError(t, err)
		ids = append(ids, e.ID.Hex())
	}

	resolvedAt := base.Add(24 * time.Hour)
	svc.Now = func() time.Time { return resolvedAt }
	e, err := svc.Resolve(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, e.Status)
	require.NotNil(t, e.ResolvedAt)

	svc.Now = func() time.Time { return resolvedAt.Add(time.Hour) }
	again, err := svc.Resolve(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, resolvedAt, *again.ResolvedAt)

	total, items, err := svc.List(ctx, "new", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, ids[2], items[0].ID.Hex())

	total, _, err = svc.List(ctx, "", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	_, _, err = svc.List(ctx, "closed", 0, 10)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Resolve(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}
