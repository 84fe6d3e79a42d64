package serving

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// Invoker is the subset of the Lambda API the client needs.
type Invoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput,
		optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaClient calls a Lambda function that hosts the exported model. The
// payload is the signature Input and the function answers with an Output
// or {"error": "..."}.
type LambdaClient struct {
	client       Invoker
	functionName string
}

// NewLambdaClient creates a client from the default AWS configuration.
func NewLambdaClient(ctx context.Context, functionName string) (
	*LambdaClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewLambdaClientWith(lambda.NewFromConfig(cfg), functionName), nil
}

func NewLambdaClientWith(client Invoker, functionName string) *LambdaClient {
	return &LambdaClient{client: client, functionName: functionName}
}

type lambdaResponse struct {
	Output
	Error string `json:"error,omitempty"`
}

func (c *LambdaClient) Predict(ctx context.Context, input Input) (*Output,
	error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	result, err := c.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(c.functionName),
		Payload:      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", c.functionName, err)
	}
	if result.FunctionError != nil {
		return nil, fmt.Errorf("lambda error: %s", *result.FunctionError)
	}

	var resp lambdaResponse
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("translator error: %s", resp.Error)
	}
	return &resp.Output, nil
}
