package adapter

import "github.com/zen-systems/foodgate/pkg/food"

// Request is one completion call: a system instruction, prior conversation
// turns and the new user message. MaxOutputTokens caps the reply length;
// zero means provider default.
type Request struct {
	Model           string
	System          string
	History         []food.Turn
	Message         string
	MaxOutputTokens int
}

// messages flattens history plus the new message into role/text pairs. The
// provider adapters translate roles into their own vocabulary from here.
func (r Request) messages() []food.Turn {
	msgs := make([]food.Turn, 0, len(r.History)+1)
	msgs = append(msgs, r.History...)
	msgs = append(msgs, food.Turn{Role: food.RoleUser, Text: r.Message})
	return msgs
}
