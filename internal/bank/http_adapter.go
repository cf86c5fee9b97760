package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	ierr "github.com/agensuite/cobranza/internal/errors"
	"github.com/agensuite/cobranza/internal/httpclient"
	"github.com/agensuite/cobranza/internal/logger"
)

// HTTPAdapter submits presentment batches to the bank channel's HTTP gateway
type HTTPAdapter struct {
	name    string
	baseURL string
	client  httpclient.Client
	logger  *logger.Logger
}

// NewHTTPAdapter creates a bank adapter over the given HTTP client
func NewHTTPAdapter(name string, baseURL string, client httpclient.Client, logger *logger.Logger) Adapter {
	return &HTTPAdapter{
		name:    name,
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

func (a *HTTPAdapter) Name() string {
	return a.name
}

func (a *HTTPAdapter) SubmitBatch(ctx context.Context, payload *BatchPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode batch payload").
			Mark(ierr.ErrSystem)
	}

	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/v1/debits/batches", a.baseURL),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: body,
	})
	if err != nil {
		return err
	}

	if !resp.IsSuccess() {
		return ierr.NewError("bank rejected batch submission").
			WithHintf("Bank channel %s answered status %d", a.name, resp.StatusCode).
			WithReportableDetails(map[string]any{
				"batch_id": payload.BatchID,
				"status":   resp.StatusCode,
			}).
			Mark(ierr.ErrHTTPClient)
	}

	a.logger.Infow("submitted batch to bank channel",
		"adapter", a.name,
		"batch_id", payload.BatchID,
		"items", len(payload.Items))
	return nil
}

type responseFileWire struct {
	OutboundBatchID string `json:"outbound_batch_id"`
	Content         []byte `json:"content"`
}

func (a *HTTPAdapter) FetchResponseFiles(ctx context.Context, businessDateKey string) ([]ResponseFile, error) {
	resp, err := a.client.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/v1/debits/responses?date=%s", a.baseURL, businessDateKey),
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if !resp.IsSuccess() {
		return nil, ierr.NewError("bank response file listing failed").
			WithHintf("Bank channel %s answered status %d", a.name, resp.StatusCode).
			Mark(ierr.ErrHTTPClient)
	}

	var wire []responseFileWire
	if err := json.Unmarshal(resp.Body, &wire); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Bank answered an unparseable response file listing").
			Mark(ierr.ErrHTTPClient)
	}

	files := make([]ResponseFile, 0, len(wire))
	for _, w := range wire {
		files = append(files, ResponseFile{
			OutboundBatchID: w.OutboundBatchID,
			Content:         w.Content,
		})
	}
	return files, nil
}
