package health

import (
	"context"
	"fmt"
	"os"

	"github.com/jonwraymond/mediamix/mix"
	"github.com/jonwraymond/mediamix/model"
)

// ModelChecker reports whether the model artifact is available.
func ModelChecker(provider *model.Provider) Checker {
	return NewCheckerFunc("model", func(ctx context.Context) Result {
		if provider.Loaded() {
			h, err := provider.Get(ctx)
			if err != nil {
				return Unhealthy("model load failed", err)
			}
			return Healthy("model loaded").WithDetails(map[string]any{
				"version":  h.Version(),
				"channels": len(h.ChannelIDs()),
			})
		}

		// Not loaded yet: readiness only needs the artifact to exist on
		// disk, loading stays lazy until the first request.
		if _, err := os.Stat(provider.Path()); err != nil {
			return Unhealthy(fmt.Sprintf("model artifact missing at %s", provider.Path()), err)
		}
		return Healthy("model artifact present, not loaded yet")
	})
}

// DatasetChecker reports whether the marketing-mix dataset loaded.
func DatasetChecker(dataset *mix.Dataset) Checker {
	return NewCheckerFunc("dataset", func(_ context.Context) Result {
		if dataset == nil {
			return Unhealthy("dataset not loaded", mix.ErrNoData)
		}
		rows := dataset.Rows()
		if rows == 0 {
			return Degraded("dataset loaded but empty")
		}
		return Healthy("dataset loaded").WithDetails(map[string]any{
			"rows": rows,
			"geos": len(dataset.Geos()),
		})
	})
}
