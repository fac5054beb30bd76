package rocketchat

import (
	"github.com/foxseedlab/taskbot/internal/chat"
	"github.com/foxseedlab/taskbot/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (chat.Client, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewClient(c.RocketChatURL, c.RocketChatUser, c.RocketChatPassword, c.RequestTimeout), nil
	})
}
