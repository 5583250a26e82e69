package write

import (
	"errors"
	"log/slog"

	"github.com/siherrmann/graphmaker/model"
)

// batchFunc writes one batch in one transaction and reports created/merged
// counts. itemFunc writes one item in its own transaction and reports
// whether it was created.
type batchFunc[T any] func(batch []T) (*model.WriteResult, error)
type itemFunc[T any] func(item T) (bool, error)

// runBatches partitions items into fixed-size batches and writes each batch
// through writeBatch. A failed batch is rolled back by the store and retried
// item by item through writeItem; items that still fail are counted as
// errors, never aborting the run. A ConnectivityError from either function
// propagates immediately, partial counters included.
func runBatches[T any](items []T, size int, op string, logger *slog.Logger, writeBatch batchFunc[T], writeItem itemFunc[T]) (*model.WriteResult, error) {
	if size < 1 {
		size = 1
	}

	result := &model.WriteResult{}
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		batch := items[start:end]

		batchResult, err := writeBatch(batch)
		if err == nil {
			result.Add(*batchResult)
			continue
		}

		var connectivityErr *model.ConnectivityError
		if errors.As(err, &connectivityErr) {
			return result, err
		}

		logger.Warn("Batch write failed, retrying item by item",
			slog.String("op", op),
			slog.Int("batch_size", len(batch)),
			slog.String("error", err.Error()))

		for _, item := range batch {
			created, err := writeItem(item)
			if err != nil {
				if errors.As(err, &connectivityErr) {
					return result, err
				}
				result.Errors++
				logger.Warn("Item write failed",
					slog.String("op", op),
					slog.String("error", err.Error()))
				continue
			}
			if created {
				result.Created++
			} else {
				result.Merged++
			}
		}
	}

	return result, nil
}
