// Package model invokes OpenAI-compatible chat completion endpoints.
package model

import "context"

// Request is a single-turn prompt. Images holds data URIs or remote URLs in
// the order they were supplied.
type Request struct {
	System string
	User   string
	Images []string
}

// Usage reports token consumption when the endpoint provides it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the text the model produced.
type Response struct {
	Content string
	Usage   Usage
}

// Client completes a Request.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
	Name() string
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (Response, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Name identifies function clients generically.
func (f ClientFunc) Name() string {
	return "func"
}
