package server

import "context"

// NotificationSender can send JSON-RPC notifications to the peer.
type NotificationSender interface {
	SendNotification(method string, params any) error
}

// notifierKey is the context key for the notification sender.
type notifierKey struct{}

// ContextWithNotifier returns a context carrying the notification sender.
func ContextWithNotifier(ctx context.Context, sender NotificationSender) context.Context {
	if sender == nil {
		return ctx
	}
	return context.WithValue(ctx, notifierKey{}, sender)
}

// NotifierFromContext returns the notification sender from context, or nil if none.
func NotifierFromContext(ctx context.Context) NotificationSender {
	sender, _ := ctx.Value(notifierKey{}).(NotificationSender)
	return sender
}
