package logview

import (
	"github.com/foxseedlab/taskbot/internal/config"
	"github.com/foxseedlab/taskbot/internal/repository"
	"github.com/foxseedlab/taskbot/internal/tracker"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		tr := do.MustInvoke[tracker.Tracker](i)
		return NewService(repo, tr, cfg.Location()), nil
	})
}
