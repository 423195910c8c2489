package faq

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/afyalink/referral/internal/domain/access"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Published lists visible entries for anonymous readers.
func (s *Service) Published(ctx context.Context, f Filter) ([]*FAQ, error) {
	f.IncludeUnpublished = false
	return s.repo.List(ctx, f)
}

// Categories returns "all" followed by every distinct published category.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	cats, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return append([]string{"all"}, cats...), nil
}

func (s *Service) ListAll(ctx context.Context, caller access.Caller, f Filter) ([]*FAQ, error) {
	if err := caller.Require(access.FAQWrite); err != nil {
		return nil, err
	}
	f.IncludeUnpublished = true
	return s.repo.List(ctx, f)
}

func (s *Service) Create(ctx context.Context, caller access.Caller, in Input) (*FAQ, error) {
	if err := caller.Require(access.FAQWrite); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	f := &FAQ{IsPublished: true}
	in.apply(f)
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	s.log.Info().Str("faq_id", f.ID.String()).Msg("faq created")
	return f, nil
}

func (s *Service) Update(ctx context.Context, caller access.Caller, id uuid.UUID, in Input) (*FAQ, error) {
	if err := caller.Require(access.FAQWrite); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(f)
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}
