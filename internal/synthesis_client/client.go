package synthesis_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIError carries the provider's status and message for diagnostics when
// the synthesis call itself fails.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("synthesis API failed: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
}

// Result is a single synthesis reference: an opaque URL dereferenced once to
// fetch the produced image bytes.
type Result struct {
	URL string `json:"url"`
}

type editRequest struct {
	Model string `json:"model"`
	Input struct {
		Function     string `json:"function"`
		Prompt       string `json:"prompt"`
		BaseImageURL string `json:"base_image_url"`
	} `json:"input"`
	Parameters struct {
		N int `json:"n"`
	} `json:"parameters"`
}

type editResponse struct {
	Output struct {
		Results []Result `json:"results"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client is a client for the external image-synthesis API.
type Client struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a new image-synthesis client.
func NewClient(url, apiKey, model string) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// EditImage submits the image and instruction and returns the result
// references. A non-success provider status yields an *APIError.
func (c *Client) EditImage(ctx context.Context, imageDataURL, prompt string) ([]Result, error) {
	reqBody := editRequest{Model: c.model}
	reqBody.Input.Function = "description_edit"
	reqBody.Input.Prompt = prompt
	reqBody.Input.BaseImageURL = imageDataURL
	reqBody.Parameters.N = 1

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result editResponse
	if err := json.Unmarshal(body, &result); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: result.Code, Message: result.Message}
	}

	return result.Output.Results, nil
}

// FetchResult dereferences a synthesis reference and returns the raw bytes.
func (c *Client) FetchResult(ctx context.Context, resultURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("result fetch returned status %d for %s", resp.StatusCode, resultURL)
	}

	return io.ReadAll(resp.Body)
}
