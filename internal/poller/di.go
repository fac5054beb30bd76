package poller

import (
	"github.com/foxseedlab/taskbot/internal/chat"
	"github.com/foxseedlab/taskbot/internal/config"
	"github.com/foxseedlab/taskbot/internal/dialogue"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Loop, error) {
		cfg := do.MustInvoke[*config.Config](i)
		cc := do.MustInvoke[chat.Client](i)
		engine := do.MustInvoke[*dialogue.Engine](i)
		return NewLoop(cc, engine, cfg.PollInterval, cfg.PollBackoff, dialogue.IsTransient), nil
	})
}
