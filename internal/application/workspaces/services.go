package workspaces

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bryanwahyu/neurolint/internal/application"
	"github.com/bryanwahyu/neurolint/internal/domain/shared"
	domain "github.com/bryanwahyu/neurolint/internal/domain/workspaces"
)

// Service implements use-cases untuk Workspace
type Service struct {
	Repo  domain.Repository
	Clock application.Clock
}

// Input is the writable part of a workspace.
type Input struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func clean(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, shared.Invalid("name", "name is required")
	}
	if utf8.RuneCountInString(in.Name) > domain.MaxNameLength {
		return in, shared.Invalid("name", "name is too long")
	}
	in.Language = strings.TrimSpace(in.Language)
	if in.Language == "" {
		in.Language = domain.DefaultLanguage
	}
	return in, nil
}

// List ordered by updated_at desc.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.Workspace, error) {
	return s.Repo.List(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Workspace, error) {
	return s.Repo.Get(ctx, userID, id)
}

func (s *Service) Create(ctx context.Context, userID string, in Input) (*domain.Workspace, error) {
	in, err := clean(in)
	if err != nil {
		return nil, err
	}
	now := s.now()
	w := &domain.Workspace{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      in.Name,
		Code:      in.Code,
		Language:  in.Language,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Update overwrites name, code and language; ErrNotFound if the user has no such workspace.
func (s *Service) Update(ctx context.Context, userID, id string, in Input) (*domain.Workspace, error) {
	in, err := clean(in)
	if err != nil {
		return nil, err
	}
	w, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	w.Name = in.Name
	w.Code = in.Code
	w.Language = in.Language
	w.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Delete always succeeds for a missing workspace.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return s.Repo.Delete(ctx, userID, id)
}
