package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")

	ErrNoTopic         = errors.New("no topic resolved")
	ErrNoContext       = errors.New("no relevant context found")
	ErrNoHistory       = errors.New("no chat history found")
	ErrMalformedOutput = errors.New("malformed model output")

	ErrProviderNotConfigured = errors.New("llm provider not configured")
	ErrChatNotFound          = errors.New("chat not found")
)
