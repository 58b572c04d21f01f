package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Await polls probe until it succeeds or ctx ends. Model services can
// take a while to load after a cold start.
func Await(ctx context.Context, name string, probe func(context.Context) error) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context is done, giving up on %s", name)
		default:
			if err := probe(ctx); err == nil {
				return nil
			} else {
				log.Warn().Err(err).Str("service", name).Msg("service not ready")
			}
		}
		time.Sleep(1 * time.Second)
	}
}
