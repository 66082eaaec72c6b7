package service

import (
	"context"
	"fmt"

	"medorder/backend/internal/cache"
	"medorder/backend/internal/domain"
	"medorder/backend/internal/store"
)

// SaveCustomerDraft stores the actor's in-progress customer form. Each
// actor has one draft slot.
func (s *Service) SaveCustomerDraft(ctx context.Context, draft domain.CustomerDraft) (*domain.CustomerDraft, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if draft.Form == nil {
		draft.Form = map[string]string{}
	}
	if draft.Step < 0 {
		return nil, fieldError("step", "step must be at least 0")
	}
	delete(draft.Form, "password")
	draft.SavedAt = s.now()
	if err := s.drafts.Set(ctx, cache.DraftKey(actor.UserID), &draft, s.draftTTL); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return &draft, nil
}

func (s *Service) LoadCustomerDraft(ctx context.Context) (*domain.CustomerDraft, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	draft, ok, err := s.drafts.Get(ctx, cache.DraftKey(actor.UserID))
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("customer draft %w", store.ErrNotFound)
	}
	return draft, nil
}

func (s *Service) ClearCustomerDraft(ctx context.Context) error {
	actor, err := requireActor(ctx)
	if err != nil {
		return err
	}
	if err := s.drafts.Delete(ctx, cache.DraftKey(actor.UserID)); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}
