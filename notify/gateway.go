package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/internal/logging"
)

var (
	// ErrUnknownTemplate is returned for a notification naming no template.
	ErrUnknownTemplate = errors.New("unknown email template")
	// ErrSendFailed wraps every delivery failure.
	ErrSendFailed = errors.New("email send failed")
)

// Message is one rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	// Text is the plain-text alternative.
	Text string
}

// EmailSender delivers a rendered message.
type EmailSender interface {
	Send(ctx context.Context, msg Message) error
}

// Gateway implements [storefront.Notifier].
type Gateway struct {
	renderer *Renderer
	sender   EmailSender
	log      logging.Logger
}

func NewGateway(renderer *Renderer, sender EmailSender, log logging.Logger) *Gateway {
	if log == nil {
		log = logging.NewNop()
	}
	return &Gateway{renderer: renderer, sender: sender, log: log}
}

// Send renders n and delivers it. The recipient is n.To, falling back to the
// toEmail parameter.
func (g *Gateway) Send(ctx context.Context, n storefront.Notification) error {
	to := n.To
	if to == "" {
		to = n.Params[storefront.ParamToEmail]
	}
	if to == "" {
		return fmt.Errorf("%w: no recipient", ErrSendFailed)
	}

	subject, body, err := g.renderer.Render(n)
	if err != nil {
		return err
	}

	msg := Message{
		To:      to,
		Subject: subject,
		HTML:    body,
		Text:    subject + "\n\nYour code: " + n.Params[storefront.ParamOtp],
	}
	if err := g.sender.Send(ctx, msg); err != nil {
		g.log.Error(ctx, "email delivery failed", "template", string(n.Template), "error", err)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	g.log.Debug(ctx, "email sent", "template", string(n.Template))
	return nil
}
