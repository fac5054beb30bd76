package jira

import (
	"github.com/foxseedlab/taskbot/internal/config"
	"github.com/foxseedlab/taskbot/internal/tracker"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (tracker.Tracker, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewClient(c.JiraURL, c.JiraToken, c.JiraIssueType, c.RequestTimeout), nil
	})
}
