// Copyright (C) 2016, Heiko Koehler

package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hkoehler/ledenik/internal/watch"
)

// schedules timers for refreshing handlers
func StartScheduler(ctx context.Context, registry map[string]Handler) {
	for path, handler := range registry {
		if handler.PollInterval() > 0 {
			log.Infof("Start ticker for %s", path)
			ticker := time.NewTicker(handler.PollInterval())
			// create own copy of handler for go routine
			handler := handler
			go func() {
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case t := <-ticker.C:
						handler.Execute(ctx)
						log.WithField("path", handler.Path()).Debugf("refreshed at %s", t)
					}
				}
			}()
		}
	}
}

// drops unconfirmed commands older than ttl
func StartExpiry(ctx context.Context, pending *watch.Pending, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(ttl / 2)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := pending.Expire(ttl); n > 0 {
					log.Warnf("%d commands not confirmed within %s", n, ttl)
				}
			}
		}
	}()
}
