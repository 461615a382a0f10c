package llm

import (
	"context"
	"strings"
)

// StaticClient answers every request with a canned reply. It backs local
// development without provider credentials.
type StaticClient struct {
	Reply string
}

func (c StaticClient) Complete(_ context.Context, req Request) (Response, error) {
	reply := strings.TrimSpace(c.Reply)
	if reply == "" {
		reply = "I'm here to help with your health questions. Could you tell me more about how you are feeling?"
	}
	return Response{Text: reply, StopReason: "static"}, nil
}
