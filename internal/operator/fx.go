package operator

import (
	"github.com/smallbiznis/menusready/internal/authorization"
	"github.com/smallbiznis/menusready/internal/operator/repository"
	"github.com/smallbiznis/menusready/internal/operator/service"
	"go.uber.org/fx"
)

var Module = fx.Module("operator",
	authorization.Module,
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
