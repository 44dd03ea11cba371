package store

import (
	"sync"
	"testing"
	"time"

	"github.com/wsdottie/dottie-go/internal/models"
	"github.com/wsdottie/dottie-go/internal/value"
)

func TestStore(t *testing.T) {
	s := NewStore()

	clock := time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	vessels := models.Endpoint{API: "wsf-vessels", Function: "getVesselLocations", Cache: models.CacheRealtime}
	basics := models.Endpoint{API: "wsf-vessels", Function: "getVesselBasics", Cache: models.CacheStatic}
	alert := models.Endpoint{API: "wsdot-highway-alerts", Function: "getAlert", Cache: models.CacheFrequent}

	s.Put(vessels, nil, value.Array(value.Int(1)))
	s.Put(basics, nil, value.Array(value.Int(2)))
	entry := s.Put(alert, models.Params{"AlertID": "7"}, value.Object(value.Member{Key: "AlertID", Value: value.Int(7)}))

	t.Run("Put", func(t *testing.T) {
		if entry.Key != "wsdot-highway-alerts/getAlert?AlertID=7" {
			t.Errorf("Unexpected key %s", entry.Key)
		}
		if !entry.ExpiresAt.Equal(clock.Add(time.Minute)) {
			t.Errorf("Expected expiry one minute out, got %v", entry.ExpiresAt)
		}
		if s.Len() != 3 {
			t.Errorf("Expected 3 entries, got %d", s.Len())
		}
	})

	t.Run("GetFreshOnly", func(t *testing.T) {
		clock = clock.Add(10 * time.Second)

		if _, ok := s.Get("wsf-vessels/getVesselLocations"); ok {
			t.Error("Expected realtime entry to be stale after 10s")
		}
		if _, ok := s.Peek("wsf-vessels/getVesselLocations"); !ok {
			t.Error("Expected Peek to return stale entry")
		}
		e, ok := s.Get("wsf-vessels/getVesselBasics")
		if !ok {
			t.Fatal("Expected static entry to be fresh")
		}
		if !value.Equal(e.Value, value.Array(value.Int(2))) {
			t.Errorf("Unexpected value %s", e.Value)
		}
		if _, ok := s.Get("missing"); ok {
			t.Error("Expected missing key to miss")
		}
	})

	t.Run("Keys", func(t *testing.T) {
		keys := s.Keys()
		expected := []string{
			"wsdot-highway-alerts/getAlert?AlertID=7",
			"wsf-vessels/getVesselBasics",
			"wsf-vessels/getVesselLocations",
		}
		if len(keys) != len(expected) {
			t.Fatalf("Expected %d keys, got %v", len(expected), keys)
		}
		for i := range expected {
			if keys[i] != expected[i] {
				t.Errorf("Expected key %s at %d, got %s", expected[i], i, keys[i])
			}
		}
	})

	t.Run("InvalidateAPI", func(t *testing.T) {
		if n := s.InvalidateAPI("wsf-vessels"); n != 2 {
			t.Errorf("Expected 2 entries removed, got %d", n)
		}
		if s.Len() != 1 {
			t.Errorf("Expected 1 entry left, got %d", s.Len())
		}
	})

	t.Run("GetLastUpdate", func(t *testing.T) {
		if !s.GetLastUpdate().Equal(time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)) {
			t.Errorf("Unexpected last update %v", s.GetLastUpdate())
		}
	})
}

func TestFlushDate(t *testing.T) {
	s := NewStore()

	if _, err := s.FlushDate("wsf-fares"); err == nil {
		t.Error("Expected error before any flush date is recorded")
	}

	first := time.UnixMilli(1700000000000)
	if s.SetFlushDate("wsf-fares", first) {
		t.Error("Expected first flush date not to count as a change")
	}
	if s.SetFlushDate("wsf-fares", first) {
		t.Error("Expected same flush date not to count as a change")
	}
	if !s.SetFlushDate("wsf-fares", first.Add(time.Hour)) {
		t.Error("Expected new flush date to count as a change")
	}

	got, err := s.FlushDate("wsf-fares")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !got.Equal(first.Add(time.Hour)) {
		t.Errorf("Unexpected flush date %v", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	ep := models.Endpoint{API: "wsdot-traffic-flow", Function: "getTrafficFlows", Cache: models.CacheRealtime}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Put(ep, nil, value.Int(int64(i*j)))
				s.Get(ep.Key())
				s.Keys()
			}
		}(i)
	}
	wg.Wait()

	if s.Len() != 1 {
		t.Errorf("Expected a single entry, got %d", s.Len())
	}
}
