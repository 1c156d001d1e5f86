package service

import (
	"context"
	"strings"
	"time"

	"leadagent/internal/logger"
	"leadagent/internal/model"
)

// DefaultReplyTimeout bounds one responder call
const DefaultReplyTimeout = 45 * time.Second

// ConversationalAgent answers a lead after qualifying the message
type ConversationalAgent struct {
	agent     *LeadAgent
	responder Responder
	timeout   time.Duration
	log       *logger.Logger
}

// NewConversationalAgent creates a conversational agent. A nil responder
// always produces ReplyFallback.
func NewConversationalAgent(agent *LeadAgent, responder Responder, timeout time.Duration, log *logger.Logger) *ConversationalAgent {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = DefaultReplyTimeout
	}
	return &ConversationalAgent{
		agent:     agent,
		responder: responder,
		timeout:   timeout,
		log:       log.With("service", "ConversationalAgent"),
	}
}

// QualifyRequestFromChat maps a chat reply request onto the pipeline input.
// The contact doubles as the session key when no session id is sent.
func QualifyRequestFromChat(req model.ChatReplyRequest) model.QualifyRequest {
	return model.QualifyRequest{
		Message:   req.Message,
		Channel:   req.Channel,
		SessionID: req.SessionID,
		Contact:   req.Contact,
		Name:      req.Name,
		AgencyID:  req.AgencyID,
	}
}

// Reply qualifies and persists the message, then asks the responder for a
// short answer. Responder failures yield ReplyFallback; the analysis is
// always returned.
func (c *ConversationalAgent) Reply(ctx context.Context, req model.ChatReplyRequest) model.ChatReplyResponse {
	analysis := c.agent.AnalyzeAndPersist(ctx, QualifyRequestFromChat(req))
	reply := ReplyFallback

	if c.responder != nil {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		text, err := c.responder.Respond(callCtx, replySystemPrompt, BuildReplyPrompt(req.Message, &analysis.QualificationResult))
		cancel()

		if err != nil {
			c.log.Warn("responder failed, using fallback reply", "error", err)
		} else if text = strings.TrimSpace(text); text != "" {
			reply = text
		}
	}

	return model.ChatReplyResponse{Analysis: &analysis, Reply: reply}
}

// ReplyStream is Reply with the analysis delivered first and the reply
// streamed through onDelta. An error is returned only when a callback fails.
func (c *ConversationalAgent) ReplyStream(
	ctx context.Context,
	req model.ChatReplyRequest,
	onAnalysis func(*model.QualifyResponse) error,
	onDelta func(string) error,
) (model.ChatReplyResponse, error) {
	analysis := c.agent.AnalyzeAndPersist(ctx, QualifyRequestFromChat(req))
	resp := model.ChatReplyResponse{Analysis: &analysis, Reply: ReplyFallback}

	if onAnalysis != nil {
		if err := onAnalysis(&analysis); err != nil {
			return resp, err
		}
	}

	if c.responder == nil {
		return resp, c.emitFallback(onDelta)
	}

	// callbackErr separates a client failure from a responder failure
	var callbackErr error
	forward := func(delta string) error {
		if onDelta == nil {
			return nil
		}
		if err := onDelta(delta); err != nil {
			callbackErr = err
			return err
		}
		return nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.responder.RespondStream(callCtx, replySystemPrompt, BuildReplyPrompt(req.Message, &analysis.QualificationResult), forward)
	if callbackErr != nil {
		return resp, callbackErr
	}
	if err != nil || strings.TrimSpace(text) == "" {
		c.log.Warn("streamed reply failed, using fallback reply", "error", err)
		if text != "" {
			// part of the reply already reached the client
			return model.ChatReplyResponse{Analysis: &analysis, Reply: text}, nil
		}
		return resp, c.emitFallback(onDelta)
	}

	resp.Reply = text
	return resp, nil
}

func (c *ConversationalAgent) emitFallback(onDelta func(string) error) error {
	if onDelta == nil {
		return nil
	}
	return onDelta(ReplyFallback)
}
