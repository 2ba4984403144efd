package menu

import (
	"github.com/smallbiznis/menusready/internal/menu/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("menu.repository",
	fx.Provide(repository.Provide),
)
