package httpserver

import (
	"github.com/foxseedlab/taskbot/internal/config"
	"github.com/foxseedlab/taskbot/internal/logview"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		svc := do.MustInvoke[*logview.Service](i)
		return NewServer(cfg, svc), nil
	})
}
