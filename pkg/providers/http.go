package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	tserrors "github.com/lwolf/trendscaler/pkg/errors"
)

const maxBodySize = 1 << 20

type loadResponse struct {
	UserCount *float64 `json:"user_count"`
}

type usageResponse struct {
	CPUMilli  *float64 `json:"total_cpu_usage_mCPU"`
	MemoryMiB *float64 `json:"total_memory_usage_MiB"`
	Error     string   `json:"error,omitempty"`
}

// HTTPLoadProvider reads {"user_count": n} from an HTTP endpoint.
type HTTPLoadProvider struct {
	client   *http.Client
	endpoint string
	log      logr.Logger
}

func NewHTTPLoadProvider(log logr.Logger, endpoint string, timeout time.Duration) *HTTPLoadProvider {
	once.Do(initMetrics)
	return &HTTPLoadProvider{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		log:      log.WithName("httpLoad"),
	}
}

func (p *HTTPLoadProvider) GetLoad(ctx context.Context) (load float64, err error) {
	start := time.Now()
	defer func() { observeRequest(sourceHTTPLoad, start, err) }()

	var resp loadResponse
	if err := getJSON(ctx, p.client, p.endpoint, &resp); err != nil {
		return 0, fmt.Errorf("%w: %s", tserrors.ErrSignalUnavailable, err)
	}
	if resp.UserCount == nil {
		return 0, fmt.Errorf("%w: response has no user_count", tserrors.ErrSignalUnavailable)
	}
	load = *resp.UserCount
	if math.IsNaN(load) || math.IsInf(load, 0) {
		return 0, fmt.Errorf("%w: non-finite user_count", tserrors.ErrSignalUnavailable)
	}
	p.log.V(1).Info("fetched load", "userCount", load)
	return load, nil
}

// HTTPResourceProvider reads the aggregated usage document of the resource
// metrics service.
type HTTPResourceProvider struct {
	client   *http.Client
	endpoint string
	log      logr.Logger
}

func NewHTTPResourceProvider(log logr.Logger, endpoint string, timeout time.Duration) *HTTPResourceProvider {
	once.Do(initMetrics)
	return &HTTPResourceProvider{
		client:   &http.Client{Timeout: timeout},
		endpoint: endpoint,
		log:      log.WithName("httpResource"),
	}
}

func (p *HTTPResourceProvider) GetUsage(ctx context.Context) (usage *Usage, err error) {
	start := time.Now()
	defer func() { observeRequest(sourceHTTPResource, start, err) }()

	var resp usageResponse
	if err := getJSON(ctx, p.client, p.endpoint, &resp); err != nil {
		return nil, fmt.Errorf("%w: %s", tserrors.ErrMetricsUnavailable, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", tserrors.ErrMetricsUnavailable, resp.Error)
	}
	if resp.CPUMilli == nil || resp.MemoryMiB == nil {
		return nil, fmt.Errorf("%w: incomplete usage document", tserrors.ErrMetricsUnavailable)
	}
	usage = &Usage{CPUMilli: *resp.CPUMilli, MemoryMiB: *resp.MemoryMiB}
	p.log.V(1).Info("fetched usage", "cpu", usage.CPUMilli, "memory", usage.MemoryMiB)
	return usage, nil
}

func getJSON(ctx context.Context, c *http.Client, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(v); err != nil {
		return fmt.Errorf("unable to decode response from %s: %w", url, err)
	}
	return nil
}
