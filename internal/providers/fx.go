package providers

import (
	"github.com/smallbiznis/menusready/internal/providers/alert"
	"github.com/smallbiznis/menusready/internal/providers/email"
	"github.com/smallbiznis/menusready/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	alert.Module,
	pdf.Module,
)
