package cache

import (
	"testing"

	"github.com/Sternrassler/provider-paging/pkg/metrics"
)

func TestCacheMetrics_Types(t *testing.T) {
	CacheHits.WithLabelValues("redis").Add(0)
	CacheMisses.Add(0)
	CacheWrittenBytes.WithLabelValues("redis").Add(0)
	CacheErrors.WithLabelValues("get").Add(0)

	families, err := metrics.Gatherer.Gather()
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"paging_cache_hits_total":          "COUNTER",
		"paging_cache_misses_total":        "COUNTER",
		"paging_cache_written_bytes_total": "COUNTER",
		"paging_cache_errors_total":        "COUNTER",
	}
	for _, mf := range families {
		wantType, ok := want[mf.GetName()]
		if !ok {
			continue
		}
		if got := mf.GetType().String(); got != wantType {
			t.Errorf("%s type = %s, want %s", mf.GetName(), got, wantType)
		}
		delete(want, mf.GetName())
	}
	for name := range want {
		t.Errorf("%s not registered with metrics.Registry", name)
	}
}
