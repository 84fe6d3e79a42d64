package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DEFAULT_MODEL_NAME = "nmt"

// RESTClient calls a model hosted by TensorFlow Serving over its REST API.
type RESTClient struct {
	BaseURL       string
	ModelName     string
	SignatureName string
	HTTPClient    *http.Client
}

// NewRESTClient
// Returns a client for the model named modelName served at baseURL, e.g.
// http://localhost:8501.
func NewRESTClient(baseURL, modelName string) *RESTClient {
	if modelName == "" {
		modelName = DEFAULT_MODEL_NAME
	}
	return &RESTClient{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		ModelName:     modelName,
		SignatureName: DEFAULT_SIGNATURE,
		HTTPClient:    &http.Client{Timeout: 60 * time.Second},
	}
}

type predictRequest struct {
	SignatureName string `json:"signature_name"`
	Inputs        Input  `json:"inputs"`
}

type predictResponse struct {
	Outputs *Output `json:"outputs"`
	Error   string  `json:"error,omitempty"`
}

type modelStatusResponse struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
	} `json:"model_version_status"`
}

func (c *RESTClient) modelURL() string {
	return c.BaseURL + "/v1/models/" + c.ModelName
}

// Predict sends the columnar-format predict request for the signature.
func (c *RESTClient) Predict(ctx context.Context, input Input) (*Output,
	error) {
	payload, err := json.Marshal(predictRequest{
		SignatureName: c.SignatureName,
		Inputs:        input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.modelURL()+":predict", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", c.ModelName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed predictResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response (status %d): %w",
			resp.StatusCode, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("serving error: %s", parsed.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serving returned status %d", resp.StatusCode)
	}
	if parsed.Outputs == nil {
		return nil, fmt.Errorf("serving response has no outputs")
	}
	return parsed.Outputs, nil
}

// Available
// Reports whether at least one version of the model is in the AVAILABLE
// state.
func (c *RESTClient) Available(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.modelURL(),
		nil)
	if err != nil {
		return false, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	var status modelStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, fmt.Errorf("failed to parse model status: %w", err)
	}
	for _, version := range status.ModelVersionStatus {
		if version.State == "AVAILABLE" {
			return true, nil
		}
	}
	return false, nil
}
