package service

import (
	"fmt"

	"github.com/lirobabyxoxo/CapitaoCP/internal/models"
	"github.com/lirobabyxoxo/CapitaoCP/internal/storage"
)

// UserService caches users as they are observed in events and commands.
type UserService struct {
	repo storage.Repository
}

// NewUserService creates a UserService.
func NewUserService(repo storage.Repository) *UserService {
	return &UserService{repo: repo}
}

// EnsureUser records a user on first sight and refreshes the cached
// display fields afterwards. Users are never deleted.
func (s *UserService) EnsureUser(id, username, discriminator, avatar string) error {
	if err := s.repo.UpsertUser(&models.User{
		ID:            id,
		Username:      username,
		Discriminator: discriminator,
		Avatar:        avatar,
	}); err != nil {
		return fmt.Errorf("upserting user %s: %w", id, err)
	}
	return nil
}

// GetUser returns the cached user record, or nil when never observed.
func (s *UserService) GetUser(id string) (*models.User, error) {
	return s.repo.GetUser(id)
}
