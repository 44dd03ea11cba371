// Package catalog holds the declarative description of every upstream
// endpoint: URL template, parameters, cache strategy and optional output
// JSON Schema.
package catalog

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/wsdottie/dottie-go/internal/models"
	"github.com/wsdottie/dottie-go/internal/value"
	"github.com/wsdottie/dottie-go/internal/wsdate"
)

//go:embed endpoints.yaml schemas/*.json
var embedded embed.FS

var placeholder = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9]*)\}`)

type catalogFile struct {
	APIs []struct {
		Name      string            `yaml:"name"`
		Host      models.Host       `yaml:"host"`
		Endpoints []models.Endpoint `yaml:"endpoints"`
	} `yaml:"apis"`
}

// Catalog is an immutable, validated set of endpoints
type Catalog struct {
	apis      []models.APIInfo
	order     []string
	endpoints map[string]models.Endpoint
	schemas   map[string]*jsonschema.Schema
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog. It panics if the embedded table is
// broken, which the package tests rule out.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(embedded, "endpoints.yaml")
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultCatalog
}

// Load reads an endpoint table from fsys. Schema files are resolved in a
// "schemas" directory next to the table.
func Load(fsys fs.FS, name string) (*Catalog, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", name, err)
	}

	c := &Catalog{
		endpoints: make(map[string]models.Endpoint),
		schemas:   make(map[string]*jsonschema.Schema),
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	schemaDir := path.Join(path.Dir(name), "schemas")

	seenAPI := make(map[string]bool)
	for _, api := range f.APIs {
		if api.Name == "" {
			return nil, errors.New("catalog: api without a name")
		}
		if seenAPI[api.Name] {
			return nil, fmt.Errorf("catalog: duplicate api %s", api.Name)
		}
		seenAPI[api.Name] = true
		if api.Host != models.HostWSDOT && api.Host != models.HostWSF {
			return nil, fmt.Errorf("catalog: api %s: unknown host %q", api.Name, api.Host)
		}

		info := models.APIInfo{Name: api.Name, Host: api.Host}
		for _, ep := range api.Endpoints {
			ep.API = api.Name
			ep.Host = api.Host
			if err := checkEndpoint(ep); err != nil {
				return nil, fmt.Errorf("catalog: %s: %w", ep.Key(), err)
			}
			if _, dup := c.endpoints[ep.Key()]; dup {
				return nil, fmt.Errorf("catalog: duplicate endpoint %s", ep.Key())
			}
			if ep.Schema != "" && c.schemas[ep.Schema] == nil {
				s, err := compileSchema(compiler, fsys, path.Join(schemaDir, ep.Schema))
				if err != nil {
					return nil, fmt.Errorf("catalog: %s: %w", ep.Key(), err)
				}
				c.schemas[ep.Schema] = s
			}

			c.endpoints[ep.Key()] = ep
			c.order = append(c.order, ep.Key())
			info.Functions = append(info.Functions, ep.Function)
		}
		c.apis = append(c.apis, info)
	}
	return c, nil
}

func compileSchema(compiler *jsonschema.Compiler, fsys fs.FS, name string) (*jsonschema.Schema, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	url := "mem:" + name
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return s, nil
}

func checkEndpoint(ep models.Endpoint) error {
	if ep.Function == "" {
		return errors.New("missing function name")
	}
	if !strings.HasPrefix(ep.URLTemplate, "/") {
		return fmt.Errorf("url %q must start with /", ep.URLTemplate)
	}
	if !ep.Cache.Valid() {
		return fmt.Errorf("unknown cache strategy %q", ep.Cache)
	}

	seen := make(map[string]bool)
	for _, p := range ep.Params {
		switch p.Type {
		case models.ParamString, models.ParamInt, models.ParamDate, models.ParamBool:
		default:
			return fmt.Errorf("param %s: unknown type %q", p.Name, p.Type)
		}
		lower := strings.ToLower(p.Name)
		if seen[lower] {
			return fmt.Errorf("duplicate param %s", p.Name)
		}
		seen[lower] = true
	}

	for _, m := range placeholder.FindAllStringSubmatch(ep.URLTemplate, -1) {
		p, ok := ep.Param(m[1])
		if !ok {
			return fmt.Errorf("url placeholder {%s} has no param", m[1])
		}
		if !p.Required {
			return fmt.Errorf("url placeholder {%s} must be a required param", m[1])
		}
	}

	if len(ep.SampleParams) > 0 {
		if _, err := ValidateParams(ep, ep.SampleParams); err != nil {
			return fmt.Errorf("sample params: %w", err)
		}
	}
	return nil
}

// Placeholders lists the {Name} placeholders of a URL template in order
func Placeholders(template string) []string {
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		names = append(names, m[1])
	}
	return names
}

// Lookup finds an endpoint by api and function name
func (c *Catalog) Lookup(api, function string) (models.Endpoint, bool) {
	ep, ok := c.endpoints[api+"/"+function]
	return ep, ok
}

// APIs lists every API in declaration order
func (c *Catalog) APIs() []models.APIInfo {
	out := make([]models.APIInfo, len(c.apis))
	for i, info := range c.apis {
		info.Functions = append([]string(nil), info.Functions...)
		out[i] = info
	}
	return out
}

// Endpoints lists the endpoints of one API, or nil if the API is unknown
func (c *Catalog) Endpoints(api string) []models.Endpoint {
	var out []models.Endpoint
	for _, key := range c.order {
		if ep := c.endpoints[key]; ep.API == api {
			out = append(out, ep)
		}
	}
	return out
}

// All lists every endpoint in declaration order
func (c *Catalog) All() []models.Endpoint {
	out := make([]models.Endpoint, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.endpoints[key])
	}
	return out
}

// FlushEndpoint returns the cacheflushdate endpoint of a WSF API
func (c *Catalog) FlushEndpoint(api string) (models.Endpoint, bool) {
	for _, ep := range c.Endpoints(api) {
		if ep.Host == models.HostWSF && strings.HasSuffix(ep.URLTemplate, "/cacheflushdate") {
			return ep, true
		}
	}
	return models.Endpoint{}, false
}

// HasSchema reports whether responses of ep are schema checked
func (c *Catalog) HasSchema(ep models.Endpoint) bool {
	return c.schemas[ep.Schema] != nil
}

// Validate checks v against the output schema of ep. Endpoints without a
// schema accept any value. Failures are returned as Issues.
func (c *Catalog) Validate(ep models.Endpoint, v value.Value) error {
	s := c.schemas[ep.Schema]
	if s == nil {
		return nil
	}
	err := s.Validate(v.ToAny())
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("catalog: validate %s: %w", ep.Key(), err)
	}
	return schemaIssues(ve, nil)
}

// schemaIssues flattens a validation error tree into its leaves
func schemaIssues(ve *jsonschema.ValidationError, out Issues) Issues {
	if len(ve.Causes) == 0 {
		return append(out, Issue{
			Path:    strings.TrimPrefix(ve.InstanceLocation, "#"),
			Code:    CodeSchema,
			Message: ve.Message,
		})
	}
	for _, cause := range ve.Causes {
		out = schemaIssues(cause, out)
	}
	return out
}

// ValidateParams checks params against the declared parameters of ep and
// returns them keyed by their declared names. Empty values count as absent.
func ValidateParams(ep models.Endpoint, params map[string]string) (models.Params, error) {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(models.Params, len(params))
	given := make(map[string]bool)
	var iss Issues
	for _, name := range names {
		v := params[name]
		p, ok := ep.Param(name)
		if !ok {
			iss = append(iss, Issue{Path: "/" + name, Code: CodeUnknownKey, Message: "unknown parameter"})
			continue
		}
		if v == "" {
			continue
		}
		given[p.Name] = true
		if err := checkType(p.Type, v); err != nil {
			iss = append(iss, Issue{Path: "/" + p.Name, Code: CodeInvalidType, Message: err.Error()})
			continue
		}
		out[p.Name] = v
	}
	for _, p := range ep.Params {
		if p.Required && !given[p.Name] {
			iss = append(iss, Issue{Path: "/" + p.Name, Code: CodeRequired, Message: "missing required parameter"})
		}
	}
	if len(iss) > 0 {
		return nil, iss
	}
	return out, nil
}

func checkType(t models.ParamType, v string) error {
	switch t {
	case models.ParamInt:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("expected integer, got %q", v)
		}
	case models.ParamDate:
		if _, err := time.Parse(wsdate.ParamLayout, v); err != nil {
			return fmt.Errorf("expected date as %s, got %q", wsdate.ParamLayout, v)
		}
	case models.ParamBool:
		if _, err := strconv.ParseBool(v); err != nil {
			return fmt.Errorf("expected true or false, got %q", v)
		}
	}
	return nil
}
