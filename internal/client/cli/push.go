package cli

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/live"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
)

// startPush (re)starts the background push loop for the current session.
func (a *App) startPush(ctx context.Context) {
	a.stopPush()

	url, err := a.api.PushURL()
	if err != nil {
		log.Printf("live updates disabled: %s", err.Error())
		return
	}

	pctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.pushStop, a.pushDone = cancel, done
	a.mu.Unlock()

	go func() {
		defer close(done)
		a.maintainPush(pctx, url)
	}()
}

// stopPush cancels the push loop and waits for it to finish.
func (a *App) stopPush() {
	a.mu.Lock()
	cancel, done := a.pushStop, a.pushDone
	a.pushStop, a.pushDone = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// maintainPush keeps a subscriber running, reconnecting every
// ReconnectInterval, until ctx ends, the session is dropped, or the server
// rejects the token.
func (a *App) maintainPush(ctx context.Context, url string) {
	for {
		token := a.api.Token()
		if token == "" {
			return
		}

		sub := a.newSubscriber(url, func(m wire.Message) {
			if err := a.timerService.Apply(ctx, m); err != nil {
				log.Printf("live update not applied: %s", err.Error())
			}
		})
		sub.OnStateChange(a.setPushState)

		err := sub.Run(ctx, token)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, live.ErrRejected) {
			log.Printf("live updates stopped: session rejected, please log in again")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(a.config.ReconnectInterval):
		}
	}
}

func (a *App) setPushState(s live.State) {
	a.mu.Lock()
	a.pushState = s
	a.mu.Unlock()

	a.timerService.SetLive(s == live.StateSubscribed)
}
