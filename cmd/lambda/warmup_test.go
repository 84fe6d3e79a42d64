package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
)

type recordingInvoker struct {
	mu     sync.Mutex
	inputs []*lambdasdk.InvokeInput
	err    error
}

func (r *recordingInvoker) Invoke(_ context.Context,
	params *lambdasdk.InvokeInput,
	_ ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs = append(r.inputs, params)
	return &lambdasdk.InvokeOutput{StatusCode: 202}, r.err
}

func TestIsWarmupEvent(t *testing.T) {
	tests := []struct {
		name        string
		event       string
		isWarmup    bool
		concurrency int
	}{
		{"warmup", `{"source": "warmup"}`, true, 0},
		{"with concurrency", `{"source": "warmup", "concurrency": 3}`,
			true, 3},
		{"translation request", `{"texts": ["bonjour"]}`, false, 0},
		{"other source", `{"source": "aws.events"}`, false, 0},
		{"not an object", `["warmup"]`, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warmup, ok := IsWarmupEvent(json.RawMessage(tt.event))
			assert.Equal(t, tt.isWarmup, ok)
			if ok {
				assert.Equal(t, tt.concurrency, warmup.Concurrency)
			}
		})
	}
}

func TestSelfInvoke(t *testing.T) {
	invoker := &recordingInvoker{}
	err := selfInvoke(context.Background(), invoker, "nmt-translate", 3)
	assert.NoError(t, err)
	assert.Len(t, invoker.inputs, 3)
	for _, input := range invoker.inputs {
		assert.Equal(t, "nmt-translate", *input.FunctionName)
		assert.Equal(t, types.InvocationTypeEvent, input.InvocationType)
		assert.JSONEq(t, `{"source": "warmup", "concurrency": 0}`,
			string(input.Payload))
	}
}

func TestSelfInvoke_Error(t *testing.T) {
	invoker := &recordingInvoker{err: errors.New("throttled")}
	err := selfInvoke(context.Background(), invoker, "nmt-translate", 2)
	assert.EqualError(t, err, "throttled")
}
