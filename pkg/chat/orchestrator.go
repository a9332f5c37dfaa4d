// Package chat composes the classifier, the template responder, hybrid
// search and the generation bridge into the per-message decision tree.
package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zen-systems/foodgate/pkg/food"
	"github.com/zen-systems/foodgate/pkg/gen"
	"github.com/zen-systems/foodgate/pkg/intent"
	"github.com/zen-systems/foodgate/pkg/router"
	"github.com/zen-systems/foodgate/pkg/search"
)

// contextTopK is how many places hybrid search feeds the model.
const contextTopK = 10

// Request is one chat message with its session state.
type Request struct {
	Message     string      `json:"message"`
	City        string      `json:"city"`
	History     []food.Turn `json:"history"`
	UserAddress string      `json:"user_address"`
}

// Response is the single-shot chat result.
type Response struct {
	Reply     string       `json:"reply"`
	ModelUsed string       `json:"model_used"`
	QueryType string       `json:"query_type"`
	Results   []food.Place `json:"results"`
}

// StreamResult describes a finished stream: which model answered, how the
// query was classified and which places backed the answer. On the template
// path the whole reply went out as one chunk.
type StreamResult struct {
	Model   string
	Type    string
	Results []food.Place
}

// Targets maps the paid tiers to their provider and model. The local tier
// never generates.
type Targets struct {
	Light gen.Target
	Heavy gen.Target
}

func (t Targets) forTier(tier router.Tier) gen.Target {
	if tier == router.TierHeavy {
		return t.Heavy
	}
	return t.Light
}

// Orchestrator runs the per-message state machine: classify, try the
// zero-cost template on the local tier, otherwise fuse search context and
// generate.
type Orchestrator struct {
	classifier *router.Classifier
	search     *search.Service
	responder  *intent.Responder
	bridge     *gen.Service
	targets    Targets
	logger     *zap.Logger

	// Now is the clock for meal labels; tests override it.
	Now func() time.Time
}

// NewOrchestrator wires the collaborators together.
func NewOrchestrator(classifier *router.Classifier, searchSvc *search.Service,
	responder *intent.Responder, bridge *gen.Service, targets Targets, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		classifier: classifier,
		search:     searchSvc,
		responder:  responder,
		bridge:     bridge,
		targets:    targets,
		logger:     logger,
		Now:        time.Now,
	}
}

// Ask processes one message to completion and returns the full reply.
func (o *Orchestrator) Ask(ctx context.Context, req Request) (*Response, error) {
	if err := search.ValidateCity(req.City); err != nil {
		return nil, err
	}
	reqID := uuid.NewString()
	decision := o.classifier.Route(req.Message, req.UserAddress != "")
	o.logger.Info("chat",
		zap.String("request_id", reqID),
		zap.String("city", req.City),
		zap.String("tier", string(decision.Tier)),
		zap.String("query_type", string(decision.QueryType)),
		zap.String("reason", decision.Reason))

	if decision.Tier == router.TierLocal {
		reply, items, handled, err := o.tryTemplate(ctx, req)
		if err != nil {
			return nil, err
		}
		if handled {
			return &Response{Reply: reply, ModelUsed: string(router.TierLocal), QueryType: string(router.QuerySimple), Results: items}, nil
		}
		decision = router.Fallback()
		o.logger.Info("template miss, escalating", zap.String("request_id", reqID))
	}

	items, err := o.search.HybridSearch(ctx, req.City, req.Message, contextTopK)
	if err != nil {
		return nil, err
	}
	reply := o.bridge.Reply(ctx, o.targets.forTier(decision.Tier), o.promptContext(req, decision, items))
	return &Response{
		Reply:     reply,
		ModelUsed: string(decision.Tier),
		QueryType: string(decision.QueryType),
		Results:   items,
	}, nil
}

// AskStream processes one message and emits reply text through emit, in
// order, until the reply is complete. Each message is fully drained before
// the caller reads the next one.
func (o *Orchestrator) AskStream(ctx context.Context, req Request, emit func(chunk string) error) (*StreamResult, error) {
	if err := search.ValidateCity(req.City); err != nil {
		return nil, err
	}
	decision := o.classifier.Route(req.Message, req.UserAddress != "")

	if decision.Tier == router.TierLocal {
		reply, items, handled, err := o.tryTemplate(ctx, req)
		if err != nil {
			return nil, err
		}
		if handled {
			if err := emit(reply); err != nil {
				return nil, err
			}
			return &StreamResult{Model: string(router.TierLocal), Type: string(router.QuerySimple), Results: items}, nil
		}
		decision = router.Fallback()
	}

	items, err := o.search.HybridSearch(ctx, req.City, req.Message, contextTopK)
	if err != nil {
		return nil, err
	}
	for chunk := range o.bridge.Stream(ctx, o.targets.forTier(decision.Tier), o.promptContext(req, decision, items)) {
		if err := emit(chunk); err != nil {
			return nil, err
		}
	}
	return &StreamResult{Model: string(decision.Tier), Type: string(decision.QueryType), Results: items}, nil
}

// tryTemplate runs the zero-cost path. The responder searches through the
// same hybrid fusion the generation path uses.
func (o *Orchestrator) tryTemplate(ctx context.Context, req Request) (string, []food.Place, bool, error) {
	searchFn := func(ctx context.Context, keyword string, limit int) ([]food.Place, error) {
		return o.search.HybridSearch(ctx, req.City, keyword, limit)
	}
	return o.responder.Handle(ctx, req.Message, searchFn, o.Now().Hour())
}

func (o *Orchestrator) promptContext(req Request, decision router.Decision, items []food.Place) gen.PromptContext {
	return gen.PromptContext{
		Tier:        decision.Tier,
		City:        req.City,
		Hour:        o.Now().Hour(),
		UserAddress: req.UserAddress,
		Places:      items,
		History:     req.History,
		Message:     req.Message,
		TokenBudget: decision.MaxOutputTokens,
	}
}
