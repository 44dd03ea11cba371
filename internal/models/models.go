package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Host selects the upstream service family, which decides the base URL and
// the name of the access code query parameter
type Host string

const (
	HostWSDOT Host = "wsdot"
	HostWSF   Host = "wsf"
)

// AccessCodeParam returns the query parameter carrying the API access code
func (h Host) AccessCodeParam() string {
	if h == HostWSF {
		return "apiaccesscode"
	}
	return "AccessCode"
}

// CacheStrategy describes how quickly an endpoint's data goes stale
type CacheStrategy string

const (
	CacheRealtime CacheStrategy = "REALTIME"
	CacheFrequent CacheStrategy = "FREQUENT"
	CacheModerate CacheStrategy = "MODERATE"
	CacheHourly   CacheStrategy = "HOURLY"
	CacheStatic   CacheStrategy = "STATIC"
)

// TTL returns how long a fetched response stays fresh
func (c CacheStrategy) TTL() time.Duration {
	switch c {
	case CacheRealtime:
		return 5 * time.Second
	case CacheFrequent:
		return time.Minute
	case CacheModerate:
		return 5 * time.Minute
	case CacheHourly:
		return time.Hour
	case CacheStatic:
		return 24 * time.Hour
	}
	return time.Minute
}

// Valid reports whether c is a known strategy
func (c CacheStrategy) Valid() bool {
	switch c {
	case CacheRealtime, CacheFrequent, CacheModerate, CacheHourly, CacheStatic:
		return true
	}
	return false
}

// ParamType is the accepted shape of an endpoint input parameter
type ParamType string

const (
	ParamString ParamType = "string"
	ParamInt    ParamType = "int"
	ParamDate   ParamType = "date"
	ParamBool   ParamType = "bool"
)

// Param describes one input parameter of an endpoint
type Param struct {
	Name     string    `yaml:"name" json:"name"`
	Type     ParamType `yaml:"type" json:"type"`
	Required bool      `yaml:"required" json:"required"`
}

// Endpoint describes one upstream REST function
type Endpoint struct {
	API          string            `yaml:"-" json:"api"`
	Function     string            `yaml:"function" json:"function"`
	Description  string            `yaml:"description" json:"description,omitempty"`
	Host         Host              `yaml:"-" json:"host"`
	URLTemplate  string            `yaml:"url" json:"url_template"`
	Params       []Param           `yaml:"params" json:"params,omitempty"`
	Cache        CacheStrategy     `yaml:"cache" json:"cache"`
	Schema       string            `yaml:"schema" json:"schema,omitempty"`
	SampleParams map[string]string `yaml:"sample" json:"sample_params,omitempty"`
}

// Key identifies the endpoint as api/function
func (e Endpoint) Key() string {
	return e.API + "/" + e.Function
}

// Param looks up a parameter by name, case-insensitively
func (e Endpoint) Param(name string) (Param, bool) {
	for _, p := range e.Params {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Param{}, false
}

// Params is the input of a single endpoint call
type Params map[string]string

// CacheKey returns the endpoint key plus params in a stable order
func (p Params) CacheKey(endpointKey string) string {
	if len(p) == 0 {
		return endpointKey
	}
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(endpointKey)
	for i, name := range names {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		fmt.Fprintf(&b, "%s=%s", name, p[name])
	}
	return b.String()
}

// APIInfo summarizes one upstream API for listings
type APIInfo struct {
	Name      string   `json:"name"`
	Host      Host     `json:"host"`
	Functions []string `json:"functions"`
}
