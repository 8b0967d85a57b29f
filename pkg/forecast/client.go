package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// The model server consumes fixed-length observation windows and returns a
// fixed horizon of daily predictions per SKU.
const (
	SeqLength = 7
	Horizon   = 7
)

// Observation is one day of history for a SKU, oldest first in a sequence.
type Observation struct {
	Date     string  `json:"date"`
	Quantity float64 `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// PredictRequest carries the last SeqLength observations per SKU.
type PredictRequest struct {
	Sequences map[string][]Observation `json:"sequences"`
	Horizon   int                      `json:"horizon"`
}

// DayPrediction is the model output for one future day.
type DayPrediction struct {
	Stock           float64 `json:"stock"`
	AvailableStock  float64 `json:"available_stock"`
	PlannedOutbound float64 `json:"planned_outbound"`
}

// PredictResponse maps SKU to its Horizon days of predictions.
type PredictResponse struct {
	Predictions map[string][]DayPrediction `json:"predictions"`
}

// Client talks to the external model-serving endpoint. The trained model is
// an oracle behind HTTP; nothing about inference lives in this backend.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Predict posts the sequences to {baseURL}/predict and decodes the response.
func (c *Client) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	if req.Horizon <= 0 {
		req.Horizon = Horizon
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("model server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("model server returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}
	return &out, nil
}
