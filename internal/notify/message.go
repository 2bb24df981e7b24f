// Package notify delivers the transactional emails of the auth lifecycle.
//
// A Sender talks to an email provider. A Dispatcher decides when that
// happens: inline within the request, through an asynq queue, or through a
// Kafka topic consumed by cmd/worker.
package notify

import (
	"context"
	"errors"
)

type Template string

const (
	TemplateVerification  Template = "verification"
	TemplateWelcome       Template = "welcome"
	TemplatePasswordReset Template = "password_reset"
	TemplateResetSuccess  Template = "reset_success"
)

// Parameter keys understood by the templates.
const (
	ParamVerificationCode = "verification_code"
	ParamName             = "name"
	ParamResetURL         = "reset_url"
)

type Message struct {
	Template Template          `json:"template"`
	To       string            `json:"to"`
	Params   map[string]string `json:"params,omitempty"`
}

var (
	ErrUnknownTemplate = errors.New("unknown notification template")
	ErrNoRecipient     = errors.New("notification has no recipient")
)

func (m Message) Validate() error {
	if m.To == "" {
		return ErrNoRecipient
	}
	switch m.Template {
	case TemplateVerification, TemplateWelcome, TemplatePasswordReset, TemplateResetSuccess:
		return nil
	default:
		return ErrUnknownTemplate
	}
}

// Sender delivers a message through an email provider.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher hands a message over for delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// Pinger is implemented by dispatchers backed by a broker.
type Pinger interface {
	Ping(ctx context.Context) error
}

// InlineDispatcher sends within the caller's request.
type InlineDispatcher struct {
	sender Sender
}

func NewInlineDispatcher(sender Sender) *InlineDispatcher {
	return &InlineDispatcher{sender: sender}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return d.sender.Send(ctx, msg)
}
