package errors

import (
	"errors"

	apierrs "k8s.io/apimachinery/pkg/api/errors"
)

var (
	ErrSignalUnavailable  = errors.New("load signal unavailable")
	ErrMetricsUnavailable = errors.New("resource metrics unavailable")
	ErrStoreRead          = errors.New("unable to read replica count")
	ErrStoreWrite         = errors.New("unable to update replica count")
)

// Kind returns a short label describing err, suitable for metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSignalUnavailable):
		return "signal_unavailable"
	case errors.Is(err, ErrMetricsUnavailable):
		return "metrics_unavailable"
	case errors.Is(err, ErrStoreRead):
		if apierrs.IsNotFound(err) {
			return "store_not_found"
		}
		return "store_read"
	case errors.Is(err, ErrStoreWrite):
		if apierrs.IsConflict(err) {
			return "store_conflict"
		}
		return "store_write"
	default:
		return "unknown"
	}
}
