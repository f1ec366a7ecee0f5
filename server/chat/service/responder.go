package service

import (
	"context"
	"strings"
	"time"

	"chatbot_server/server/chat/domain"
	commonlog "chatbot_server/server/common/log"
)

const ApologyResponse = "I apologize, but I'm having trouble generating a response right now."

// Completer produces a reply for prompt given prior turns of the same
// conversation, oldest first.
type Completer interface {
	Complete(ctx context.Context, prompt string, history []domain.Turn) (string, error)
}

// HistoryFitter trims prior turns before they are handed to a Completer.
type HistoryFitter interface {
	Fit(prompt string, history []domain.Turn) []domain.Turn
}

type Responder struct {
	completer Completer
	fitter    HistoryFitter
}

func NewResponder(completer Completer, fitter HistoryFitter) *Responder {
	return &Responder{completer: completer, fitter: fitter}
}

// Generate never fails: any completer error, panic or empty output is
// replaced with ApologyResponse.
func (r *Responder) Generate(ctx context.Context, prompt string, history []domain.Turn) (reply string) {
	startedAt := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			commonlog.Exceptionf("event=chat_generate status=panic latency_ms=%d error=%v", time.Since(startedAt).Milliseconds(), rec)
			reply = ApologyResponse
		}
	}()

	if r.fitter != nil && len(history) > 0 {
		history = r.fitter.Fit(prompt, history)
	}
	out, err := r.completer.Complete(ctx, prompt, history)
	if err != nil {
		commonlog.Exceptionf("event=chat_generate status=failed history_turns=%d latency_ms=%d error=%v", len(history), time.Since(startedAt).Milliseconds(), err)
		return ApologyResponse
	}
	out = strings.TrimSpace(out)
	if out == "" {
		commonlog.Warnf("event=chat_generate status=empty history_turns=%d latency_ms=%d", len(history), time.Since(startedAt).Milliseconds())
		return ApologyResponse
	}
	commonlog.Debugf("event=chat_generate status=ok history_turns=%d latency_ms=%d", len(history), time.Since(startedAt).Milliseconds())
	return out
}
