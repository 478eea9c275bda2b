package main

import (
	"context"
	"time"
)

// notify runs fn after the response has been written. The request context
// is gone by then, so fn gets its own.
func (app *application) notify(fn func(ctx context.Context)) {
	if app.notifier == nil {
		return
	}

	app.background.Add(1)
	go func() {
		defer app.background.Done()
		defer func() {
			if rec := recover(); rec != nil {
				app.logger.Errorw("notification panicked", "panic", rec)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		fn(ctx)
	}()
}

func (app *application) prunePushTokensDaily() {
	if app.config.market.pushTokenMaxAge <= 0 {
		return
	}

	prune := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := app.store.PushTokens.PruneStaleTokens(ctx, app.config.market.pushTokenMaxAge)
		if err != nil {
			app.logger.Errorf("Error pruning stale push tokens: %v", err)
			return
		}
		app.logger.Infof("Pruned %d stale push tokens at %s", n, time.Now().Format(time.RFC1123))
	}

	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		// Run once immediately
		prune()

		for range ticker.C {
			prune()
		}
	}()
}
