package inference

import (
	"context"
	"log/slog"

	"github.com/teslashibe/go-gesture/pkg/window"
)

// Chain tries multiple classifiers in order. It moves on to the next one
// only when a classifier could not be reached; a classifier that answers
// with an error ends the attempt.
type Chain struct {
	classifiers []Classifier
	logger      *slog.Logger
}

// NewChain creates a classifier chain.
// At least one classifier is required.
func NewChain(classifiers ...Classifier) (*Chain, error) {
	if len(classifiers) == 0 {
		return nil, ErrNoClassifier
	}
	return &Chain{
		classifiers: classifiers,
		logger:      slog.Default().With("component", "inference.chain"),
	}, nil
}

// NewChainWithLogger creates a classifier chain with a custom logger.
func NewChainWithLogger(logger *slog.Logger, classifiers ...Classifier) (*Chain, error) {
	chain, err := NewChain(classifiers...)
	if err != nil {
		return nil, err
	}
	chain.logger = logger.With("component", "inference.chain")
	return chain, nil
}

// Predict tries each classifier until one answers.
func (c *Chain) Predict(ctx context.Context, w *window.Window) (*Prediction, error) {
	var errs []error

	for i, cl := range c.classifiers {
		pred, err := cl.Predict(ctx, w)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback classifier succeeded",
					"classifier_index", i,
				)
			}
			return pred, nil
		}

		if !IsTransport(err) {
			return nil, err
		}

		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
		if i < len(c.classifiers)-1 {
			c.logger.Warn("classifier unreachable, trying next",
				"classifier_index", i,
				"error", err,
			)
		}
	}

	return nil, &ChainError{Errors: errs}
}

// Health returns nil if at least one classifier is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var healthy int
	var lastErr error

	for _, cl := range c.classifiers {
		if err := cl.Health(ctx); err != nil {
			lastErr = err
		} else {
			healthy++
		}
	}

	c.logger.Debug("health check complete",
		"healthy", healthy,
		"total", len(c.classifiers),
	)
	if healthy == 0 {
		return lastErr
	}
	return nil
}

// Close closes all classifiers.
func (c *Chain) Close() error {
	var lastErr error
	for _, cl := range c.classifiers {
		if err := cl.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Classifiers returns the classifiers in the chain.
func (c *Chain) Classifiers() []Classifier {
	return c.classifiers
}

// Verify Chain implements Classifier at compile time.
var _ Classifier = (*Chain)(nil)
