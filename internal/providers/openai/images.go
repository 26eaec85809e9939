package openai

import (
	"context"
	"errors"
)

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Quality string `json:"quality,omitempty"`
	N       int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateImage asks for a single low quality image and returns its base64.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	req := imageRequest{Model: c.imageModel, Prompt: prompt, Quality: "low", N: 1}
	var resp imageResponse
	if err := c.doJSON(ctx, "/images/generations", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", errors.New("openai images: no image data returned")
	}
	return resp.Data[0].B64JSON, nil
}
