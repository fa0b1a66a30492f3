package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request is the payload sent to the AI risk classifier.
type Request struct {
	Descripcion string `json:"descripcion"`
	PlantelID   string `json:"plantel_id"`
	AlumnoID    string `json:"alumno_id"`
	UserID      string `json:"user_id"`
}

// Result is the structured classification returned by the service.
type Result struct {
	Clasificacion    string   `json:"clasificacion"`
	TipoIncidencia   string   `json:"tipo_incidencia,omitempty"`
	AccionesUrgentes []string `json:"acciones_urgentes"`
	ActaBorrador     string   `json:"acta_borrador"`
	FundamentoLegal  string   `json:"fundamento_legal"`
}

// Client talks to the external classifier endpoint. Calls are single-attempt:
// any transport, status, or decode failure is a total failure and nothing of a
// partial response is ever returned.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a classifier client with the given base URL and timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Classify sends the incident narrative for risk classification.
func (c *Client) Classify(ctx context.Context, request Request) (*Result, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/clasificar", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send classify request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, string(body))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode classify response: %w", err)
	}

	return &result, nil
}

// Health checks whether the classifier service is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send health request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier health returned status %d", resp.StatusCode)
	}
	return nil
}
