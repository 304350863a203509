package classifier

import (
	"context"

	"github.com/rs/zerolog"
)

// Fallback uses Primary and falls back to Secondary when Primary fails.
type Fallback struct {
	Primary   Classifier
	Secondary Classifier
	Logger    zerolog.Logger
}

func (f *Fallback) Classify(ctx context.Context, text string, gc Context) (Command, error) {
	cmd, err := f.Primary.Classify(ctx, text, gc)
	if err == nil {
		return cmd, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	f.Logger.Warn().Err(err).Msg("primary classifier failed, using fallback")
	return f.Secondary.Classify(ctx, text, gc)
}
