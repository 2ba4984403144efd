package publication

import (
	"github.com/smallbiznis/menusready/internal/publication/service"
	"go.uber.org/fx"
)

var Module = fx.Module("publication.service",
	fx.Provide(service.New),
)
