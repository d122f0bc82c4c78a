package store

import (
	"context"
	"errors"
	"time"

	"github.com/sneezeparty/soupy/diag/status"
)

type reportingStore struct {
	reporter    status.Reporter
	actualStore External
}

// NewReportingStore decorates the given store with health reporting.
// Missing keys are not treated as failures.
func NewReportingStore(actualStore External, reporter status.Reporter) External {
	return &reportingStore{
		reporter:    reporter,
		actualStore: actualStore,
	}
}

func (r *reportingStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.actualStore.Get(ctx, key)
	var notFound ErrNotFound
	if err != nil && !errors.As(err, &notFound) {
		r.reporter.ReportError(status.Cache, "store read failed")
	} else {
		r.reporter.ReportOk(status.Cache, "store read succeeded")
	}
	return b, err
}

func (r *reportingStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := r.actualStore.Set(ctx, key, value, ttl)
	if err != nil {
		r.reporter.ReportError(status.Cache, "store write failed")
		return err
	}
	r.reporter.ReportOk(status.Cache, "store write succeeded")
	return nil
}

func (r *reportingStore) Shutdown() {
	r.actualStore.Shutdown()
}
