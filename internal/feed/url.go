package feed

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/wsdottie/dottie-go/internal/catalog"
	"github.com/wsdottie/dottie-go/internal/models"
)

// BuildURL fills the URL template of ep from params and appends the access
// code. Params that no placeholder consumes are sent as query parameters.
func BuildURL(base, accessCode string, ep models.Endpoint, params models.Params) (string, error) {
	pathTpl, queryTpl, _ := strings.Cut(ep.URLTemplate, "?")

	used := make(map[string]bool)
	lookup := func(name string) (string, error) {
		p, ok := ep.Param(name)
		if !ok {
			return "", fmt.Errorf("no param for placeholder {%s}", name)
		}
		v, ok := params[p.Name]
		if !ok || v == "" {
			return "", fmt.Errorf("missing value for {%s}", p.Name)
		}
		used[p.Name] = true
		return v, nil
	}

	path := pathTpl
	for _, name := range catalog.Placeholders(pathTpl) {
		v, err := lookup(name)
		if err != nil {
			return "", err
		}
		path = strings.Replace(path, "{"+name+"}", url.PathEscape(v), 1)
	}

	query := url.Values{}
	if queryTpl != "" {
		for _, pair := range strings.Split(queryTpl, "&") {
			key, tpl, _ := strings.Cut(pair, "=")
			v := tpl
			for _, name := range catalog.Placeholders(tpl) {
				pv, err := lookup(name)
				if err != nil {
					return "", err
				}
				v = strings.Replace(v, "{"+name+"}", pv, 1)
			}
			query.Add(key, v)
		}
	}

	extra := make([]string, 0, len(params))
	for name := range params {
		if !used[name] && params[name] != "" {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		query.Add(name, params[name])
	}

	if accessCode != "" {
		query.Set(ep.Host.AccessCodeParam(), accessCode)
	}

	u := strings.TrimRight(base, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u, nil
}

// redact hides the access code in a URL built by BuildURL
func redact(raw string, host models.Host) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	name := host.AccessCodeParam()
	if q.Has(name) {
		q.Set(name, "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
