package feed

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Sample upstream payloads. The malformed ones reproduce defects seen in
// live WSDOT responses.
const (
	SampleBorderCrossings = `[
	{"BorderCrossingLocation":{"Description":"I-5 General Purpose","Direction":null,"Latitude":49.004776,"Longitude":-122.756964,"MilePost":0,"RoadName":"005"},
	 "CrossingName":"I5","Time":"/Date(1700000000000-0800)/","WaitTime":15},
	{"BorderCrossingLocation":null,"CrossingName":"SR543TrucksFast","Time":"/Date(1700000000000-0800)/","WaitTime":-1}
]`

	// trailing commas, accepted by the lenient tier
	SampleBorderCrossingsTrailingCommas = `[
	{"CrossingName":"I5","Time":"/Date(1700000000000-0800)/","WaitTime":15,},
]`

	// truncated body, recovered by the repair tier
	SampleBorderCrossingsTruncated = `[{"CrossingName":"I5","Time":"/Date(1700000000000-0800)/","WaitTime":15}`

	SampleBorderCrossingsWrongType = `[{"CrossingName":"I5","Time":"/Date(1700000000000-0800)/","WaitTime":"soon"}]`

	SampleVesselLocations = `[
	{"VesselID":2,"VesselName":"Chelan","Mmsi":366709770,"DepartingTerminalID":1,"DepartingTerminalName":"Anacortes",
	 "DepartingTerminalAbbrev":"ANA","ArrivingTerminalID":null,"ArrivingTerminalName":null,"ArrivingTerminalAbbrev":null,
	 "Latitude":48.506,"Longitude":-122.677,"Speed":0,"Heading":90,"InService":true,"AtDock":true,
	 "LeftDock":null,"Eta":null,"ScheduledDeparture":"/Date(1700000000000-0800)/",
	 "OpRouteAbbrev":["ana-sj"],"VesselPositionNum":1,"TimeStamp":"/Date(1700000060000-0800)/"}
]`

	SampleFlushDate      = `"/Date(1700000000000-0800)/"`
	SampleFlushDateLater = `"/Date(1700003600000-0800)/"`

	SampleHTMLError = `<html><body>Service Unavailable</body></html>`
)

type mockResponse struct {
	status int
	body   string
	delay  time.Duration
}

// MockUpstream serves canned responses by URL path and counts requests
type MockUpstream struct {
	mu        sync.Mutex
	responses map[string]mockResponse
	hits      map[string]int
	queries   map[string]url.Values
}

// NewMockUpstream creates an upstream with no routes
func NewMockUpstream() *MockUpstream {
	return &MockUpstream{
		responses: make(map[string]mockResponse),
		hits:      make(map[string]int),
		queries:   make(map[string]url.Values),
	}
}

// Set serves body with status on path
func (m *MockUpstream) Set(path string, status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = mockResponse{status: status, body: body}
}

// SetDelay makes path wait d, or until the request is cancelled, before answering
func (m *MockUpstream) SetDelay(path string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp := m.responses[path]
	resp.delay = d
	m.responses[path] = resp
}

// Hits returns how many requests path received
func (m *MockUpstream) Hits(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[path]
}

// LastQuery returns the query of the latest request to path
func (m *MockUpstream) LastQuery(path string) url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[path]
}

func (m *MockUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.hits[r.URL.Path]++
	m.queries[r.URL.Path] = r.URL.Query()
	resp, ok := m.responses[r.URL.Path]
	m.mu.Unlock()

	if !ok {
		http.Error(w, `{"Message":"No HTTP resource was found"}`, http.StatusNotFound)
		return
	}
	if resp.delay > 0 {
		select {
		case <-time.After(resp.delay):
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	w.Write([]byte(resp.body))
}
