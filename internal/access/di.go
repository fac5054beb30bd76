package access

import (
	"github.com/foxseedlab/taskbot/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Gate, error) {
		repo := do.MustInvoke[repository.Repository](i)
		return NewGate(repo), nil
	})
}
