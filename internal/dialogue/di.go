package dialogue

import (
	"github.com/foxseedlab/taskbot/internal/access"
	"github.com/foxseedlab/taskbot/internal/chat"
	"github.com/foxseedlab/taskbot/internal/config"
	"github.com/foxseedlab/taskbot/internal/repository"
	"github.com/foxseedlab/taskbot/internal/tracker"
	"github.com/foxseedlab/taskbot/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Engine, error) {
		cfg := do.MustInvoke[*config.Config](i)
		gate := do.MustInvoke[*access.Gate](i)
		cc := do.MustInvoke[chat.Client](i)
		tr := do.MustInvoke[tracker.Tracker](i)
		repo := do.MustInvoke[repository.Repository](i)
		wh := do.MustInvoke[webhook.Sender](i)
		return NewEngine(cfg, gate, cc, tr, repo, wh), nil
	})
}
