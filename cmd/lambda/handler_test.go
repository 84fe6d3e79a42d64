package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/nmt_runner/chat"
	"github.com/wbrown/nmt_runner/serving"
	"github.com/wbrown/nmt_runner/tokenizer"
)

// reverseSignature answers with the input tokens in reverse order.
type reverseSignature struct {
	calls int
	err   error
}

func (r *reverseSignature) Predict(_ context.Context, input serving.Input) (
	*serving.Output, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	row := input.Tokens[0]
	out := make([]serving.String, len(row))
	for idx, token := range row {
		out[len(row)-1-idx] = serving.String(token)
	}
	return &serving.Output{
		Tokens: [][][]serving.String{{out}},
		Length: [][]int32{{int32(len(out))}},
	}, nil
}

func newTestSession(sig serving.Signature) *chat.Session {
	return chat.NewSession(&tokenizer.Space{}, sig, nil, nil)
}

func TestHandle(t *testing.T) {
	sig := &reverseSignature{}
	resp := Handle(context.Background(), newTestSession(sig), Request{
		Texts: []string{"le chat noir", "  ", "bonjour"},
	})
	assert.Empty(t, resp.Error)
	assert.Equal(t, []string{"noir chat le", "", "bonjour"},
		resp.Translations)
	assert.Equal(t, 2, sig.calls)
}

func TestHandle_Empty(t *testing.T) {
	sig := &reverseSignature{}
	resp := Handle(context.Background(), newTestSession(sig), Request{})
	assert.Equal(t, []string{}, resp.Translations)
	assert.Zero(t, sig.calls)
}

func TestHandle_EmptyJSON(t *testing.T) {
	resp := Handle(context.Background(),
		newTestSession(&reverseSignature{}), Request{Texts: []string{}})
	encoded, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"translations": []}`, string(encoded))
}

func TestHandle_Error(t *testing.T) {
	sig := &reverseSignature{err: errors.New("model unavailable")}
	resp := Handle(context.Background(), newTestSession(sig), Request{
		Texts: []string{"bonjour"},
	})
	assert.Nil(t, resp.Translations)
	assert.Equal(t, "failed to translate text 0: model unavailable",
		resp.Error)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SERVING_URL", "http://localhost:8501")
	t.Setenv("NMT_TOKENIZER", "space")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8501", cfg.ServingURL)
	assert.Equal(t, "nmt", cfg.ModelName)
	assert.Equal(t, "space", cfg.Tokenization.Type)
}

func TestLoadConfig_MissingURL(t *testing.T) {
	t.Setenv("SERVING_URL", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestNewSession_REST(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/models/nmt:predict", r.URL.Path)
			w.Write([]byte(`{"outputs": {"tokens": [[["hello", "world"]]],` +
				` "length": [[2]]}}`))
		}))
	defer server.Close()

	s, err := NewSession(Config{
		ServingURL:   server.URL,
		ModelName:    "nmt",
		Tokenization: tokenizer.Config{Type: tokenizer.TYPE_SPACE},
	})
	require.NoError(t, err)
	resp := Handle(context.Background(), s, Request{
		Texts: []string{"bonjour le monde"},
	})
	assert.Equal(t, []string{"hello world"}, resp.Translations)
}

func TestHandleRequest_Warmup(t *testing.T) {
	result, err := handleRequest(context.Background(),
		json.RawMessage(`{"source": "warmup"}`))
	require.NoError(t, err)
	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(encoded), `"status":"warm"`))
}

func TestHandleRequest_BadPayload(t *testing.T) {
	_, err := handleRequest(context.Background(),
		json.RawMessage(`{"texts": "not a list"}`))
	assert.Error(t, err)
}

func fixedSession(s *chat.Session) func() (*chat.Session, error) {
	return func() (*chat.Session, error) { return s, nil }
}

// functionInvoker runs Dispatch in place of a deployed function.
type functionInvoker struct {
	session *chat.Session
}

func (f *functionInvoker) Invoke(ctx context.Context,
	params *lambdasdk.InvokeInput,
	_ ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error) {
	result, err := Dispatch(ctx, params.Payload, fixedSession(f.session))
	if err != nil {
		payload, _ := json.Marshal(map[string]string{
			"errorMessage": err.Error(),
		})
		return &lambdasdk.InvokeOutput{
			FunctionError: aws.String("Unhandled"),
			Payload:       payload,
		}, nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &lambdasdk.InvokeOutput{StatusCode: 200, Payload: payload}, nil
}

func TestDispatch_LambdaClientRoundTrip(t *testing.T) {
	sig := &reverseSignature{}
	client := serving.NewLambdaClientWith(
		&functionInvoker{session: newTestSession(sig)}, "nmt-translate")

	output, err := client.Predict(context.Background(),
		serving.NewInput([]string{"le", "chat"}))
	require.NoError(t, err)
	best, err := output.Best()
	require.NoError(t, err)
	assert.Equal(t, []string{"chat", "le"}, best)
	assert.Equal(t, 1, sig.calls)
}

func TestDispatch_LambdaClientError(t *testing.T) {
	sig := &reverseSignature{err: errors.New("model unavailable")}
	client := serving.NewLambdaClientWith(
		&functionInvoker{session: newTestSession(sig)}, "nmt-translate")

	_, err := client.Predict(context.Background(),
		serving.NewInput([]string{"bonjour"}))
	assert.EqualError(t, err,
		"translator error: failed to predict: model unavailable")
}

func TestDispatch_BatchMismatch(t *testing.T) {
	sig := &reverseSignature{}
	result, err := Dispatch(context.Background(),
		json.RawMessage(`{"tokens": [["le", "chat"]], "length": []}`),
		fixedSession(newTestSession(sig)))
	require.NoError(t, err)
	resp := result.(*PredictResponse)
	assert.Nil(t, resp.Output)
	assert.Contains(t, resp.Error, "same non-zero batch size")
	assert.Zero(t, sig.calls)
}

func TestDispatch_RequiresTexts(t *testing.T) {
	built := false
	result, err := Dispatch(context.Background(), json.RawMessage(`{}`),
		func() (*chat.Session, error) {
			built = true
			return nil, errors.New("no session")
		})
	require.NoError(t, err)
	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"translations": null, "error": "texts is required"}`,
		string(encoded))
	assert.False(t, built)
}

func TestDispatch_Texts(t *testing.T) {
	result, err := Dispatch(context.Background(),
		json.RawMessage(`{"texts": ["le chat noir"]}`),
		fixedSession(newTestSession(&reverseSignature{})))
	require.NoError(t, err)
	assert.Equal(t, []string{"noir chat le"},
		result.(*Response).Translations)
}

func TestHandleRequest_MissingTexts(t *testing.T) {
	result, err := handleRequest(context.Background(),
		json.RawMessage(`{"source": "aws.events"}`))
	require.NoError(t, err)
	assert.Equal(t, "texts is required", result.(*Response).Error)
}
