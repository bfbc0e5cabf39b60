package service

import (
	"github.com/lirobabyxoxo/CapitaoCP/internal/config"
	"github.com/lirobabyxoxo/CapitaoCP/internal/storage"
)

// Services bundles the lifecycle managers built over one repository.
type Services struct {
	Users     *UserService
	Mutes     *MuteService
	Marriages *MarriageService
	Configs   *ConfigService
}

// NewServices wires all services against the given repository using the
// configured bounds and defaults.
func NewServices(cfg *config.Config, repo storage.Repository) *Services {
	return &Services{
		Users:     NewUserService(repo),
		Mutes:     NewMuteService(repo, cfg.Moderation.MinMuteDuration(), cfg.Moderation.MaxMuteDuration()),
		Marriages: NewMarriageService(repo),
		Configs:   NewConfigService(repo, cfg.Clear.DefaultTrigger),
	}
}
