package feed

import (
	"context"
	"fmt"
	"time"

	"rssnews/internal/domain/entity"
	"rssnews/internal/repository"
)

// CreateInput represents the input parameters for registering a new feed.
type CreateInput struct {
	URL        string
	Language   string
	Priority   int
	TrustScore int
	DailyQuota int
}

// UpdateInput represents the input parameters for updating an existing feed.
// Nil fields are left unchanged.
type UpdateInput struct {
	ID         int64
	Priority   *int
	TrustScore *int
	DailyQuota *int
	Status     *entity.FeedStatus
}

// Service provides feed management use cases.
// It handles business logic for feed operations and delegates persistence to the repository.
type Service struct {
	Repo repository.FeedRepository
}

// List retrieves all feeds from the repository.
func (s *Service) List(ctx context.Context) ([]*entity.Feed, error) {
	feeds, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	return feeds, nil
}

// Get retrieves a single feed by its ID.
// Returns ErrFeedNotFound if the feed does not exist.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Feed, error) {
	if id <= 0 {
		return nil, &entity.ValidationError{Field: "id", Message: "must be positive"}
	}

	f, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	if f == nil {
		return nil, ErrFeedNotFound
	}
	return f, nil
}

// Create registers a new feed with the provided input.
// Returns ErrDuplicateFeed if a feed with the same URL already exists.
func (s *Service) Create(ctx context.Context, in CreateInput) error {
	if in.URL == "" {
		return &entity.ValidationError{Field: "url", Message: "is required"}
	}
	if err := entity.ValidateURL(in.URL); err != nil {
		return fmt.Errorf("validate feed URL: %w", err)
	}

	existing, err := s.Repo.GetByURL(ctx, in.URL)
	if err != nil {
		return fmt.Errorf("check existing feed: %w", err)
	}
	if existing != nil {
		return ErrDuplicateFeed
	}

	f := &entity.Feed{
		URL:        in.URL,
		Language:   in.Language,
		Priority:   in.Priority,
		TrustScore: in.TrustScore,
		DailyQuota: in.DailyQuota,
		Status:     entity.FeedStatusActive,
		NextCrawlAt: time.Now(),
	}
	if err := f.Validate(); err != nil {
		return err
	}

	if err := s.Repo.Create(ctx, f); err != nil {
		return fmt.Errorf("create feed: %w", err)
	}
	return nil
}

// Update modifies an existing feed with the provided input.
// Returns ErrFeedNotFound if the feed does not exist.
func (s *Service) Update(ctx context.Context, in UpdateInput) error {
	if in.ID <= 0 {
		return &entity.ValidationError{Field: "id", Message: "must be positive"}
	}

	f, err := s.Repo.Get(ctx, in.ID)
	if err != nil {
		return fmt.Errorf("get feed: %w", err)
	}
	if f == nil {
		return ErrFeedNotFound
	}

	if in.Priority != nil {
		f.Priority = *in.Priority
	}
	if in.TrustScore != nil {
		f.TrustScore = *in.TrustScore
	}
	if in.DailyQuota != nil {
		f.DailyQuota = *in.DailyQuota
	}
	if in.Status != nil {
		f.Status = *in.Status
	}

	if err := f.Validate(); err != nil {
		return err
	}

	if err := s.Repo.Update(ctx, f); err != nil {
		return fmt.Errorf("update feed: %w", err)
	}
	return nil
}

// Delete removes a feed by its ID.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return &entity.ValidationError{Field: "id", Message: "must be positive"}
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}
	return nil
}
