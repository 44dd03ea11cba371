package catalog

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/wsdottie/dottie-go/internal/decode"
	"github.com/wsdottie/dottie-go/internal/models"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	apis := c.APIs()
	if len(apis) != 16 {
		t.Fatalf("Expected 16 APIs, got %d", len(apis))
	}

	hosts := map[models.Host]int{}
	for _, api := range apis {
		hosts[api.Host]++
		if len(api.Functions) == 0 {
			t.Errorf("API %s has no functions", api.Name)
		}
	}
	if hosts[models.HostWSDOT] != 12 || hosts[models.HostWSF] != 4 {
		t.Errorf("Unexpected host split %v", hosts)
	}

	if len(c.All()) < len(apis) {
		t.Errorf("Expected at least one endpoint per API")
	}
}

func TestLookup(t *testing.T) {
	c := Default()

	ep, ok := c.Lookup("wsdot-highway-alerts", "getAlert")
	if !ok {
		t.Fatal("Expected getAlert to exist")
	}
	if ep.Host != models.HostWSDOT || ep.Cache != models.CacheFrequent {
		t.Errorf("Unexpected endpoint %+v", ep)
	}
	if p, ok := ep.Param("AlertID"); !ok || p.Type != models.ParamInt || !p.Required {
		t.Errorf("Unexpected AlertID param %+v", p)
	}

	if _, ok := c.Lookup("wsdot-highway-alerts", "getNothing"); ok {
		t.Error("Expected unknown function to be missing")
	}
	if eps := c.Endpoints("nope"); eps != nil {
		t.Errorf("Expected nil endpoints for unknown API, got %d", len(eps))
	}
}

func TestFlushEndpoint(t *testing.T) {
	c := Default()

	for _, api := range []string{"wsf-fares", "wsf-schedule", "wsf-terminals", "wsf-vessels"} {
		ep, ok := c.FlushEndpoint(api)
		if !ok {
			t.Errorf("Expected cacheflushdate endpoint for %s", api)
			continue
		}
		if !strings.HasSuffix(ep.URLTemplate, "/cacheflushdate") {
			t.Errorf("Unexpected flush URL %s", ep.URLTemplate)
		}
	}
	if _, ok := c.FlushEndpoint("wsdot-travel-times"); ok {
		t.Error("Expected no flush endpoint for WSDOT")
	}
}

func TestValidateParams(t *testing.T) {
	ep, _ := Default().Lookup("wsf-schedule", "getScheduleByRoute")

	tests := []struct {
		name   string
		params map[string]string
		codes  []string
	}{
		{"valid", map[string]string{"TripDate": "2025-03-07", "RouteID": "9"}, nil},
		{"case insensitive", map[string]string{"tripdate": "2025-03-07", "routeid": "9"}, nil},
		{"missing", map[string]string{"TripDate": "2025-03-07"}, []string{CodeRequired}},
		{"bad date", map[string]string{"TripDate": "03/07/2025", "RouteID": "9"}, []string{CodeInvalidType}},
		{"bad int", map[string]string{"TripDate": "2025-03-07", "RouteID": "nine"}, []string{CodeInvalidType}},
		{"unknown", map[string]string{"TripDate": "2025-03-07", "RouteID": "9", "Foo": "1"}, []string{CodeUnknownKey}},
		{"empty counts as absent", map[string]string{"TripDate": "", "RouteID": "9"}, []string{CodeRequired}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ValidateParams(ep, tt.params)
			if tt.codes == nil {
				if err != nil {
					t.Fatalf("Unexpected error: %v", err)
				}
				if out["TripDate"] != "2025-03-07" || out["RouteID"] != "9" {
					t.Errorf("Expected canonical names, got %v", out)
				}
				return
			}
			iss, ok := AsIssues(err)
			if !ok {
				t.Fatalf("Expected Issues, got %v", err)
			}
			if len(iss) != len(tt.codes) {
				t.Fatalf("Expected %d issues, got %v", len(tt.codes), iss)
			}
			for i, code := range tt.codes {
				if iss[i].Code != code {
					t.Errorf("Expected code %s, got %s", code, iss[i].Code)
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	c := Default()
	ep, _ := c.Lookup("wsdot-border-crossings", "getBorderCrossings")
	if !c.HasSchema(ep) {
		t.Fatal("Expected border crossings to carry a schema")
	}

	good, err := decode.Decode(`[
		{"BorderCrossingLocation": null, "CrossingName": "I5", "Time": "/Date(1700000000000-0800)/", "WaitTime": 15}
	]`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := c.Validate(ep, good); err != nil {
		t.Errorf("Expected valid, got %v", err)
	}

	bad, err := decode.Decode(`[
		{"CrossingName": "I5", "Time": "/Date(1700000000000-0800)/", "WaitTime": 15},
		{"CrossingName": "SR543", "Time": "/Date(1700000000000-0800)/", "WaitTime": "soon"}
	]`)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	err = c.Validate(ep, bad)
	iss, ok := AsIssues(err)
	if !ok {
		t.Fatalf("Expected Issues, got %v", err)
	}
	found := false
	for _, is := range iss {
		if is.Path == "/1/WaitTime" && is.Code == CodeSchema {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an issue at /1/WaitTime, got %v", iss)
	}
}

func TestValidateWithoutSchema(t *testing.T) {
	c := Default()
	ep, _ := c.Lookup("wsdot-toll-rates", "getTollRates")
	v, _ := decode.Decode(`"anything"`)
	if err := c.Validate(ep, v); err != nil {
		t.Errorf("Expected endpoints without schema to accept anything, got %v", err)
	}
}

func TestCacheFlushDateSchema(t *testing.T) {
	c := Default()
	ep, _ := c.FlushEndpoint("wsf-vessels")

	ok, _ := decode.Decode(`"/Date(1700000000000-0800)/"`)
	if err := c.Validate(ep, ok); err != nil {
		t.Errorf("Expected valid flush date, got %v", err)
	}
	bad, _ := decode.Decode(`"2024-01-01"`)
	if err := c.Validate(ep, bad); err == nil {
		t.Error("Expected invalid flush date to fail")
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown host", `apis: [{name: a, host: ftp, endpoints: []}]`, "unknown host"},
		{"bad cache", `apis: [{name: a, host: wsdot, endpoints: [{function: f, url: /x, cache: WEEKLY}]}]`, "cache strategy"},
		{"relative url", `apis: [{name: a, host: wsdot, endpoints: [{function: f, url: x, cache: STATIC}]}]`, "must start with /"},
		{"orphan placeholder", `apis: [{name: a, host: wsf, endpoints: [{function: f, url: "/x/{ID}", cache: STATIC}]}]`, "no param"},
		{"duplicate endpoint", `apis: [{name: a, host: wsf, endpoints: [{function: f, url: /x, cache: STATIC}, {function: f, url: /y, cache: STATIC}]}]`, "duplicate endpoint"},
		{"unknown field", `apis: [{name: a, host: wsf, endpoints: [{function: f, url: /x, cache: STATIC, ttl: 5}]}]`, "ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := fstest.MapFS{"endpoints.yaml": {Data: []byte(tt.yaml)}}
			_, err := Load(fsys, "endpoints.yaml")
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("/ferries/api/schedule/rest/schedule/{TripDate}/{RouteID}")
	if len(got) != 2 || got[0] != "TripDate" || got[1] != "RouteID" {
		t.Errorf("Unexpected placeholders %v", got)
	}
}
