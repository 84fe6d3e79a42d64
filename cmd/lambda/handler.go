package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/wbrown/nmt_runner/chat"
	"github.com/wbrown/nmt_runner/serving"
	"github.com/wbrown/nmt_runner/tokenizer"
)

// Request is the input to the translation function.
type Request struct {
	Texts []string `json:"texts"`
}

// Response is the output of the translation function.
type Response struct {
	Translations []string `json:"translations"`
	Error        string   `json:"error,omitempty"`
}

// PredictResponse answers a raw signature request, the payload sent by
// serving.LambdaClient.
type PredictResponse struct {
	*serving.Output
	Error string `json:"error,omitempty"`
}

// Config is read from the function's environment.
type Config struct {
	ServingURL   string `env:"SERVING_URL,required,notEmpty"`
	ModelName    string `env:"SERVING_MODEL_NAME" envDefault:"nmt"`
	Detokenize   bool   `env:"NMT_DETOKENIZE"`
	Tokenization tokenizer.Config
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// NewSession creates a session that translates through the REST signature
// of the model server at cfg.ServingURL.
func NewSession(cfg Config) (*chat.Session, error) {
	tok, err := tokenizer.New(cfg.Tokenization)
	if err != nil {
		return nil, err
	}
	signature := serving.NewRESTClient(cfg.ServingURL, cfg.ModelName)
	s := chat.NewSession(tok, signature, nil, nil)
	s.Detokenize = cfg.Detokenize
	return s, nil
}

// Handle translates every text of the request in order. The first failure
// fails the whole request.
func Handle(ctx context.Context, s *chat.Session, req Request) *Response {
	if len(req.Texts) == 0 {
		return &Response{Translations: []string{}}
	}

	translations := make([]string, 0, len(req.Texts))
	for idx, text := range req.Texts {
		// Blank texts pass through untranslated.
		if strings.TrimSpace(text) == "" {
			translations = append(translations, "")
			continue
		}
		translation, err := s.Translate(ctx, text)
		if err != nil {
			return &Response{
				Error: fmt.Sprintf("failed to translate text %d: %v", idx,
					err),
			}
		}
		translations = append(translations, translation)
	}
	return &Response{Translations: translations}
}

// Predict passes a signature request straight to the model server.
func Predict(ctx context.Context, sig serving.Signature,
	input serving.Input) *PredictResponse {
	if len(input.Tokens) == 0 || len(input.Tokens) != len(input.Length) {
		return &PredictResponse{
			Error: fmt.Sprintf("tokens and length must have the same "+
				"non-zero batch size, got %d and %d", len(input.Tokens),
				len(input.Length)),
		}
	}
	output, err := sig.Predict(ctx, input)
	if err != nil {
		return &PredictResponse{
			Error: fmt.Sprintf("failed to predict: %v", err),
		}
	}
	return &PredictResponse{Output: output}
}

// Dispatch
// Routes an event by shape: payloads carrying "tokens" are signature
// requests, payloads carrying "texts" are translation requests. Anything
// else is rejected. The session is only built once the event is known to
// be valid.
func Dispatch(ctx context.Context, event json.RawMessage,
	getSession func() (*chat.Session, error)) (interface{}, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(event, &fields); err != nil {
		return nil, err
	}

	if _, ok := fields["tokens"]; ok {
		var input serving.Input
		if err := json.Unmarshal(event, &input); err != nil {
			return nil, err
		}
		s, err := getSession()
		if err != nil {
			return &PredictResponse{
				Error: fmt.Sprintf("failed to create session: %v", err),
			}, nil
		}
		return Predict(ctx, s.Signature, input), nil
	}

	if _, ok := fields["texts"]; !ok {
		return &Response{Error: "texts is required"}, nil
	}
	var req Request
	if err := json.Unmarshal(event, &req); err != nil {
		return nil, err
	}
	s, err := getSession()
	if err != nil {
		return &Response{
			Error: fmt.Sprintf("failed to create session: %v", err),
		}, nil
	}
	return Handle(ctx, s, req), nil
}
