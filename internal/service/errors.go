package service

import "errors"

var (
	// ErrEmptyContent rejects empty or whitespace-only message bodies.
	ErrEmptyContent = errors.New("message content is empty")
	// ErrReceiverRequired rejects user messages without a receiver.
	ErrReceiverRequired = errors.New("receiver is required for user messages")
)
