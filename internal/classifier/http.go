package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"silo-backend/internal/models"
)

// HTTPClassifier calls an external model service with a bounded timeout
type HTTPClassifier struct {
	url    string
	client *http.Client
}

// NewHTTPClassifier creates a classifier client for the given endpoint
func NewHTTPClassifier(url string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Classify posts features to the model service. Timeouts and transport
// errors surface as errors; callers substitute FallbackResult.
func (c *HTTPClassifier) Classify(ctx context.Context, features Features) (*models.RiskResult, error) {
	payload, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var result models.RiskResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}

	result.DeviceID = features.DeviceID
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}

	log.Printf("Classifier: device=%s class=%s score=%.2f confidence=%.2f",
		result.DeviceID, result.RiskClass, result.RiskScore, result.Confidence)
	return &result, nil
}
