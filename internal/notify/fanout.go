package notify

import (
	"context"
	"errors"

	"github.com/yourusername/pitwall/internal/models"
)

// Fanout publishes to every configured publisher
type Fanout []Publisher

// Publish implements Publisher. Every publisher is attempted; failures are joined.
func (f Fanout) Publish(ctx context.Context, result *models.PredictionResult) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
