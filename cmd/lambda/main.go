// Package main is the entry point for the translation Lambda function.
package main

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/wbrown/nmt_runner/chat"
)

var (
	sessionOnce sync.Once
	session     *chat.Session
	sessionErr  error
)

func main() {
	lambda.Start(handleRequest)
}

// getSession builds the translation session once per instance.
func getSession() (*chat.Session, error) {
	sessionOnce.Do(func() {
		var cfg Config
		if cfg, sessionErr = LoadConfig(); sessionErr == nil {
			session, sessionErr = NewSession(cfg)
		}
	})
	return session, sessionErr
}

func handleRequest(ctx context.Context, event json.RawMessage) (interface{},
	error) {
	// Warmup detection comes before any other processing.
	if warmup, ok := IsWarmupEvent(event); ok {
		return HandleWarmup(ctx, warmup)
	}
	return Dispatch(ctx, event, getSession)
}
