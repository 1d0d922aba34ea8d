package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/potensia/inkwell/llm"
)

// ImageRequest describes one image generation call.
type ImageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Quality string `json:"quality,omitempty"`
	N       int    `json:"n"`
}

// ImageResult is one generated image.
type ImageResult struct {
	URL           string `json:"url"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type imageResponse struct {
	Data []ImageResult `json:"data"`
}

// GenerateImage calls the images endpoint once. Retry policy belongs to
// the caller; a single run is classified transient or fatal the same way
// as completions.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if req.N == 0 {
		req.N = 1
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, llm.Fatal("openai", 0, "encode image request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.endpoint+"/images/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, llm.Fatal("openai", 0, "build image request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.Transient("openai", 0, "connection failure", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, llm.Transient("openai", httpResp.StatusCode, "read image response", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyStatus(httpResp.StatusCode, raw)
	}

	var parsed imageResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, llm.Transient("openai", httpResp.StatusCode, "decode image response", err)
	}
	if len(parsed.Data) == 0 {
		return nil, llm.Transient("openai", httpResp.StatusCode, "no images in response", nil)
	}

	return &parsed.Data[0], nil
}
