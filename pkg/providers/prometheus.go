package providers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	tserrors "github.com/lwolf/trendscaler/pkg/errors"
)

// PrometheusLoadProvider reads the user count with an instant PromQL query.
// All configured addresses are queried in parallel and the first answer wins.
type PrometheusLoadProvider struct {
	apis  []*promAPI
	log   logr.Logger
	query string
}

type promAPI struct {
	addr   string
	client promv1.API
}

var allConsFailedErr = errors.New("unable to reach any prometheus address")

func NewPrometheusLoadProvider(log logr.Logger, addrs []string, query string) (*PrometheusLoadProvider, error) {
	once.Do(initMetrics)

	ctrlLogger := log.WithName("prometheusLoad")
	var apis []*promAPI
	for _, addr := range addrs {
		c, err := api.NewClient(api.Config{Address: addr})
		if err != nil {
			ctrlLogger.Error(err, "unable to construct prometheus api", "address", addr)
			continue
		}
		apis = append(apis, &promAPI{
			addr:   addr,
			client: promv1.NewAPI(c),
		})
	}
	if len(apis) == 0 {
		return nil, allConsFailedErr
	}
	return &PrometheusLoadProvider{
		apis:  apis,
		log:   ctrlLogger,
		query: query,
	}, nil
}

func (l *PrometheusLoadProvider) GetLoad(ctx context.Context) (load float64, err error) {
	start := time.Now()
	defer func() { observeRequest(sourcePrometheus, start, err) }()

	value := l.queryAll(ctx, l.query)
	if value == nil {
		return 0, fmt.Errorf("%w: %s", tserrors.ErrSignalUnavailable, allConsFailedErr)
	}
	load, err = l.parse(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", tserrors.ErrSignalUnavailable, err)
	}
	return load, nil
}

func (l *PrometheusLoadProvider) queryOne(ctx context.Context, api *promAPI, query string) (model.Value, error) {
	subRequestTotal.WithLabelValues(api.addr).Inc()
	value, warnings, err := api.client.Query(ctx, query, time.Now())
	if err != nil {
		if ctx.Err() != context.Canceled {
			subRequestErrors.WithLabelValues(api.addr).Inc()
		}
		return nil, err
	}
	for _, w := range warnings {
		l.log.Info("querying prometheus", "warning", w, "query", query)
	}
	return value, nil
}

func (l *PrometheusLoadProvider) queryAll(ctx context.Context, query string) model.Value {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	valueCh := make(chan model.Value)
	doneCh := make(chan interface{})
	defer close(doneCh)

	var wg sync.WaitGroup
	for i := range l.apis {
		wg.Add(1)
		prom := l.apis[i]
		go func() {
			defer wg.Done()
			v, err := l.queryOne(ctx, prom, query)
			if err != nil {
				if ctx.Err() != context.Canceled {
					l.log.Error(err, "failed to query prometheus", "address", prom.addr)
				}
				return
			}
			select {
			case <-doneCh:
			case valueCh <- v:
			}
		}()
	}
	go func() {
		wg.Wait()
		close(valueCh)
	}()

	var v model.Value
	select {
	case v = <-valueCh:
	case <-ctx.Done():
		l.log.Error(ctx.Err(), "all requests failed")
	}
	return v
}

// parse sums every series of the result, using the last sample of matrix series.
func (l *PrometheusLoadProvider) parse(value model.Value) (float64, error) {
	var total float64
	switch v := value.(type) {
	case *model.Scalar:
		total = float64(v.Value)
	case model.Vector:
		for _, s := range v {
			total += float64(s.Value)
		}
	case model.Matrix:
		for _, ss := range v {
			if len(ss.Values) == 0 {
				continue
			}
			total += float64(ss.Values[len(ss.Values)-1].Value)
		}
	default:
		return 0, fmt.Errorf("unsupported prometheus response type %s", value.Type())
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, fmt.Errorf("prometheus returned a non-finite value %v", total)
	}
	return total, nil
}
