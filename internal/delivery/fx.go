package delivery

import (
	"context"

	"github.com/smallbiznis/menusready/internal/delivery/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("delivery",
	fx.Provide(ConfigFrom),
	fx.Provide(repository.Provide),
	fx.Provide(NewWorker),
	fx.Provide(NewDispatcher),
	fx.Provide(NewSweeper),
)

// BackgroundModule runs the dispatcher pool and the sweeper for the
// lifetime of the serve command.
var BackgroundModule = fx.Module("delivery.background",
	fx.Invoke(startBackground),
)

func startBackground(lc fx.Lifecycle, dispatcher *Dispatcher, sweeper *Sweeper) {
	var cancel context.CancelFunc
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			dispatcher.Start()

			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				sweeper.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
				select {
				case <-done:
				case <-ctx.Done():
				}
			}
			return dispatcher.Stop(ctx)
		},
	})
}
