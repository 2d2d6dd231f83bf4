package transport

import (
	"context"

	"trendpush/internal/accounts"
)

// Message is one annotated batch on its way to one account.
type Message struct {
	// Title is the report type label, used by channels that show a title.
	Title   string
	Content string
	// Index is the 1-based batch number; Total is the batch count.
	Index int
	Total int
}

// Result is a channel's acknowledgement of one send, reduced to what the
// dispatcher needs.
type Result struct {
	Accepted bool
	// RateLimited marks a response the channel reported as throttling.
	RateLimited bool
	// Diagnostic is a short human-readable reason; empty on success.
	Diagnostic string
}

func Accepted() Result { return Result{Accepted: true} }

func Rejected(diag string) Result { return Result{Diagnostic: diag} }

func Throttled(diag string) Result { return Result{RateLimited: true, Diagnostic: diag} }

// Sender delivers one batch to one account. Implementations map the
// channel's raw acknowledgement onto Result and must honour ctx.
type Sender interface {
	Send(ctx context.Context, acct accounts.Account, msg Message) Result
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, acct accounts.Account, msg Message) Result

func (f SenderFunc) Send(ctx context.Context, acct accounts.Account, msg Message) Result {
	return f(ctx, acct, msg)
}

// Account field keys shared by channel bindings and senders.
const (
	FieldURL    = "url"
	FieldTopic  = "topic"
	FieldToken  = "token"
	FieldChatID = "chat_id"
	FieldTo     = "to"
)
