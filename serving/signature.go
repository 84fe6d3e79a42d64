// Package serving invokes the serving signature of an exported
// translation model, either through TensorFlow Serving or an AWS Lambda.
package serving

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// DEFAULT_SIGNATURE is the signature exported translation models expose.
const DEFAULT_SIGNATURE = "serving_default"

// Input is the batch-major request to a translation signature. Tokens is
// a (batch, length) string tensor; Length carries the number of tokens per
// batch element, because the signature does not infer it from padding.
type Input struct {
	Tokens [][]string `json:"tokens"`
	Length []int32    `json:"length"`
}

// NewInput
// Packages a single token sequence as a batch of one: a (1, L) token
// tensor and a length tensor of [L].
func NewInput(tokens []string) Input {
	row := make([]string, len(tokens))
	copy(row, tokens)
	return Input{
		Tokens: [][]string{row},
		Length: []int32{int32(len(tokens))},
	}
}

// Output holds ranked candidates per batch element: Tokens is indexed by
// (batch, candidate, token).
type Output struct {
	Tokens   [][][]String `json:"tokens"`
	Length   [][]int32    `json:"length,omitempty"`
	LogProbs [][]float32  `json:"log_probs,omitempty"`
}

// Best
// Returns the rank 0 candidate of the first batch element, truncated to
// its reported length when the signature returns lengths.
func (o *Output) Best() ([]string, error) {
	if o == nil || len(o.Tokens) == 0 || len(o.Tokens[0]) == 0 {
		return nil, fmt.Errorf("signature returned no candidates")
	}
	candidate := o.Tokens[0][0]
	if len(o.Length) > 0 && len(o.Length[0]) > 0 {
		n := int(o.Length[0][0])
		if n < 0 || n > len(candidate) {
			return nil, fmt.Errorf("candidate length %d out of range [0, %d]",
				n, len(candidate))
		}
		candidate = candidate[:n]
	}
	best := make([]string, len(candidate))
	for idx := range candidate {
		best[idx] = string(candidate[idx])
	}
	return best, nil
}

type Signature interface {
	Predict(ctx context.Context, input Input) (*Output, error)
}

// String is a string tensor element. Serving frontends encode binary
// strings either as plain JSON strings or as {"b64": "..."} objects.
type String string

func (s *String) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		*s = String(plain)
		return nil
	}
	var wrapped struct {
		B64 *string `json:"b64"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.B64 == nil {
		return fmt.Errorf("string tensor element is neither a string nor "+
			"a b64 object: %s", data)
	}
	decoded, err := base64.StdEncoding.DecodeString(*wrapped.B64)
	if err != nil {
		return fmt.Errorf("failed to decode b64 element: %w", err)
	}
	*s = String(decoded)
	return nil
}
