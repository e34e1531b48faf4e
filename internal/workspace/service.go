package workspace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"ylack/internal/apperr"
)

// Service is a deliberately thin collaborator: CRUD plus the membership
// precondition the realtime core relies on. No interesting logic lives here.
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// RequireMember surfaces the authorization precondition for every channel
// operation: callers outside the workspace get an AuthorizationError.
func (s *Service) RequireMember(ctx context.Context, workspaceID, userID string) error {
	ok, err := s.repo.IsMember(ctx, workspaceID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Unauthorized("not a member of this workspace")
	}
	return nil
}

// Create makes a workspace with a fresh invite code, adds the creator as
// owner, and seeds a default "general" channel.
func (s *Service) Create(ctx context.Context, name, creatorID string) (*Workspace, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("name", "must not be empty")
	}

	code, err := newInviteCode()
	if err != nil {
		return nil, err
	}
	w := &Workspace{
		ID:         uuid.NewString(),
		Name:       name,
		InviteCode: code,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.CreateWorkspace(ctx, w); err != nil {
		return nil, err
	}
	if err := s.repo.AddMember(ctx, w.ID, creatorID, "owner"); err != nil {
		return nil, err
	}
	if _, err := s.CreateChannel(ctx, w.ID, "general"); err != nil {
		return nil, err
	}
	return w, nil
}

// Join adds the caller to the workspace matching the invite code.
func (s *Service) Join(ctx context.Context, inviteCode, userID string) (*Workspace, error) {
	if strings.TrimSpace(inviteCode) == "" {
		return nil, apperr.Validation("inviteCode", "must not be empty")
	}
	w, err := s.repo.GetWorkspaceByInviteCode(ctx, inviteCode)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AddMember(ctx, w.ID, userID, "member"); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]*Workspace, error) {
	return s.repo.ListWorkspacesForUser(ctx, userID)
}

func (s *Service) ListMembers(ctx context.Context, workspaceID string) ([]*Member, error) {
	return s.repo.ListMembers(ctx, workspaceID)
}

func (s *Service) CreateChannel(ctx context.Context, workspaceID, name string) (*Channel, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("name", "must not be empty")
	}
	c := &Channel{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        name,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateChannel(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ListChannels(ctx context.Context, workspaceID string) ([]*Channel, error) {
	return s.repo.ListChannels(ctx, workspaceID)
}

func newInviteCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
