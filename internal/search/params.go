// Package search turns SearchCriteria into upstream query strings and
// re-applies the criteria to merged results.
package search

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/mctn/comtracker/pkg/models"
)

// DefaultResultCap is the result-count hint sent to capped sources.
const DefaultResultCap = 1000

// Query parameter names understood by every source service.
const (
	ParamQuery   = "q"
	ParamExclude = "exclude"
	ParamCountry = "country"
	ParamLang    = "lang"
	ParamStart   = "start"
	ParamEnd     = "end"
	ParamCap     = "n"
)

// paramOrder is the order parameters are emitted in.
var paramOrder = []string{ParamQuery, ParamExclude, ParamCountry, ParamLang, ParamStart, ParamEnd, ParamCap}

// Params holds the ordered query parameters for one source request.
type Params struct {
	values url.Values
}

// BuildParams builds the parameters for c. Empty fields are omitted, query
// and exclude are trimmed. A resultCap > 0 adds the n=<cap> result-count hint,
// which only some sources understand.
func BuildParams(c models.SearchCriteria, resultCap int) Params {
	v := url.Values{}
	if q := strings.TrimSpace(c.Query); q != "" {
		v.Set(ParamQuery, q)
	}
	if ex := strings.TrimSpace(c.Exclude); ex != "" {
		v.Set(ParamExclude, ex)
	}
	if c.Country != "" {
		v.Set(ParamCountry, c.Country)
	}
	if c.Lang != "" {
		v.Set(ParamLang, c.Lang)
	}
	if c.Start != "" {
		v.Set(ParamStart, c.Start)
	}
	if c.End != "" {
		v.Set(ParamEnd, c.End)
	}
	if resultCap > 0 {
		v.Set(ParamCap, strconv.Itoa(resultCap))
	}
	return Params{values: v}
}

// Get returns the value of a parameter, or "".
func (p Params) Get(key string) string {
	return p.values.Get(key)
}

// Len returns the number of parameters set.
func (p Params) Len() int {
	return len(p.values)
}

// Encode renders the parameters as a query string in fixed order
// (q, exclude, country, lang, start, end, n).
func (p Params) Encode() string {
	var b strings.Builder
	for _, k := range paramOrder {
		val, ok := p.values[k]
		if !ok || len(val) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(val[0]))
	}
	return b.String()
}

// URL appends the encoded parameters to endpoint. The endpoint is returned
// unchanged when there are no parameters.
func (p Params) URL(endpoint string) string {
	qs := p.Encode()
	if qs == "" {
		return endpoint
	}
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + qs
}

// CriteriaFromQuery reads SearchCriteria from request query parameters
// using the same parameter names the sources accept.
func CriteriaFromQuery(v url.Values) models.SearchCriteria {
	return models.SearchCriteria{
		Query:   v.Get(ParamQuery),
		Exclude: v.Get(ParamExclude),
		Country: v.Get(ParamCountry),
		Lang:    v.Get(ParamLang),
		Start:   v.Get(ParamStart),
		End:     v.Get(ParamEnd),
	}.Normalize()
}
