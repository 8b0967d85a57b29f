package forecast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Horizon != Horizon {
			t.Errorf("horizon = %d, want %d", req.Horizon, Horizon)
		}
		if len(req.Sequences["A-1"]) != SeqLength {
			t.Errorf("sequence length = %d", len(req.Sequences["A-1"]))
		}
		resp := PredictResponse{Predictions: map[string][]DayPrediction{
			"A-1": {{Stock: 12, AvailableStock: 10, PlannedOutbound: 2}},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	obs := make([]Observation, SeqLength)
	for i := range obs {
		obs[i] = Observation{Date: "2024-01-0" + string(rune('1'+i)), Quantity: float64(i + 1)}
	}
	c := NewClient(srv.URL)
	resp, err := c.Predict(context.Background(), &PredictRequest{
		Sequences: map[string][]Observation{"A-1": obs},
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	preds := resp.Predictions["A-1"]
	if len(preds) != 1 || preds[0].Stock != 12 {
		t.Fatalf("predictions = %+v", preds)
	}
}

func TestPredictServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Predict(context.Background(), &PredictRequest{Horizon: 7})
	if err == nil {
		t.Fatal("expected error on 500")
	}
}

func TestPredictUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	if _, err := c.Predict(context.Background(), &PredictRequest{Horizon: 7}); err == nil {
		t.Fatal("expected error when server is unreachable")
	}
}
