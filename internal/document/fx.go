package document

import (
	"github.com/pktdms/docgate/internal/document/repository"
	"github.com/pktdms/docgate/internal/document/service"
	"go.uber.org/fx"
)

var Module = fx.Module("document.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
