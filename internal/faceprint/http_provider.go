package faceprint

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// HTTPProvider calls a face-embedding HTTP service.
type HTTPProvider struct {
	client *resty.Client
}

// NewHTTPProvider creates a provider against the given base URL.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)

	return &HTTPProvider{client: c}
}

// embedRequest / embedResponse structs for JSON binding

type embedRequest struct {
	Image string `json:"image"` // base64-encoded JPEG bytes
}

type embedResponse struct {
	Vector     []float32 `json:"vector"`
	Confidence float64   `json:"confidence"`
	Error      string    `json:"error"`
}

// Embed posts the image and returns the faceprint of the primary face.
func (p *HTTPProvider) Embed(ctx context.Context, image []byte) (Faceprint, error) {
	if len(image) == 0 {
		return Faceprint{}, fmt.Errorf("empty image")
	}

	reqBody := embedRequest{Image: base64.StdEncoding.EncodeToString(image)}
	var out embedResponse

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(&reqBody).
		SetResult(&out).
		Post("/v1/faceprints")
	if err != nil {
		return Faceprint{}, err
	}
	if resp.StatusCode() != http.StatusOK {
		return Faceprint{}, fmt.Errorf("faceprint service status %d", resp.StatusCode())
	}
	if out.Error != "" {
		return Faceprint{}, fmt.Errorf("faceprint service error: %s", out.Error)
	}
	if len(out.Vector) == 0 {
		return Faceprint{}, fmt.Errorf("faceprint service returned empty vector")
	}
	return Faceprint{Vector: out.Vector, Confidence: out.Confidence}, nil
}

// HealthPing implements health.Pinger for the embedding service.
func (p *HTTPProvider) HealthPing(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("/healthz")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("faceprint service status %d", resp.StatusCode())
	}
	return nil
}
