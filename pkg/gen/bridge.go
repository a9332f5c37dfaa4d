package gen

import (
	"context"
	"errors"
	"fmt"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/zen-systems/foodgate/pkg/adapter"
	"github.com/zen-systems/foodgate/pkg/food"
	"github.com/zen-systems/foodgate/pkg/router"
)

// streamBuffer is the chunk queue depth between the provider worker and
// the consumer. The worker blocks once the consumer falls this far behind.
const streamBuffer = 16

// Target names the provider and model a call goes to.
type Target struct {
	Adapter adapter.Adapter
	Model   string
}

// Service runs provider calls on a bounded worker pool so request handlers
// never execute a blocking provider call on their own goroutine. Failures
// stay inside the bridge: Reply returns an apology string and Stream emits
// one error fragment, in both cases instead of an error.
type Service struct {
	pool   *ants.Pool
	logger *zap.Logger
}

// NewService creates the bridge with a pool of at most size workers.
func NewService(size int, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Service{pool: pool, logger: logger}, nil
}

// Close releases the worker pool.
func (s *Service) Close() {
	s.pool.Release()
}

// request assembles the provider request: trimmed history and the token
// budget clamped to the tier's ceiling.
func (s *Service) request(target Target, pc PromptContext) adapter.Request {
	budget := pc.TokenBudget
	if ceiling := router.Ceiling(pc.Tier); budget <= 0 || budget > ceiling {
		budget = ceiling
	}
	return adapter.Request{
		Model:           target.Model,
		System:          pc.SystemInstruction(),
		History:         food.TrimHistory(pc.History, food.MaxHistoryTurns),
		Message:         pc.Message,
		MaxOutputTokens: budget,
	}
}

func apology(err error) string {
	return fmt.Sprintf("Xin lỗi, AI đang gặp sự cố. (%s)", adapter.Classify(err))
}

func errorFragment(err error) string {
	return fmt.Sprintf("\n[Lỗi: %s]", adapter.Classify(err))
}

// Reply runs the single-shot call on a pool worker and waits for its one
// result. Provider failures come back as the apology text, never as an
// error.
func (s *Service) Reply(ctx context.Context, target Target, pc PromptContext) string {
	req := s.request(target, pc)

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	if err := s.pool.Submit(func() {
		text, err := target.Adapter.Complete(ctx, req)
		done <- result{text: text, err: err}
	}); err != nil {
		s.logger.Error("submit generation", zap.Error(err))
		return apology(err)
	}

	res := <-done
	if res.err != nil {
		s.logger.Error("generation failed",
			zap.String("adapter", target.Adapter.Name()),
			zap.String("model", target.Model),
			zap.Error(res.err))
		return apology(res.err)
	}
	return res.text
}

// Stream runs the chunked call on a pool worker and returns a channel of
// text fragments. The channel closes after the final fragment. A provider
// failure emits one error fragment before the close; earlier chunks are
// still delivered in order. Cancelling ctx stops delivery and lets the
// worker wind down on its own.
func (s *Service) Stream(ctx context.Context, target Target, pc PromptContext) <-chan string {
	req := s.request(target, pc)
	out := make(chan string, streamBuffer)

	deliver := func(text string) error {
		select {
		case out <- text:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	work := func() {
		defer close(out)
		err := target.Adapter.CompleteStream(ctx, req, func(delta string) error {
			if delta == "" {
				return nil
			}
			return deliver(delta)
		})
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("stream failed",
			zap.String("adapter", target.Adapter.Name()),
			zap.String("model", target.Model),
			zap.Error(err))
		_ = deliver(errorFragment(err))
	}

	if err := s.pool.Submit(work); err != nil {
		s.logger.Error("submit stream", zap.Error(err))
		go func() {
			defer close(out)
			_ = deliver(errorFragment(err))
		}()
	}
	return out
}
