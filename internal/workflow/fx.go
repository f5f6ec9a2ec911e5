package workflow

import (
	"github.com/pktdms/docgate/internal/workflow/domain"
	"github.com/pktdms/docgate/internal/workflow/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("workflow.dispatcher",
	fx.Provide(func(c *webhook.Client) domain.Dispatcher { return c }),
	fx.Provide(webhook.New),
)
