package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Route is a live route. It dispatches entries to its actions in order.
type Route struct {
	name      string
	path      []string
	actions   []Action
	ancestors []*Route
	data      cty.Value

	// minLevel drops entries below it when hasMinLevel is set.
	minLevel    slog.Level
	hasMinLevel bool
	// fields are merged into every entry; entry fields win.
	fields map[string]string
}

// emptyRoute is shared by every factory and drops every entry.
var emptyRoute = &Route{name: "<empty>"}

// EmptyRoute returns the route used while nothing is configured.
func EmptyRoute() *Route { return emptyRoute }

func (r *Route) Name() string { return r.name }

// Path returns the route's ancestor names followed by its own, joined by "/".
func (r *Route) Path() string { return strings.Join(r.path, "/") }

// Actions returns the route's actions in dispatch order.
func (r *Route) Actions() []Action { return r.actions }

// Ancestors returns the enclosing routes from the root down.
func (r *Route) Ancestors() []*Route { return r.ancestors }

// Data returns the route's configuration data.
func (r *Route) Data() cty.Value { return r.data }

// MinLevel returns the effective minimum level, if one is configured here or
// on an ancestor.
func (r *Route) MinLevel() (slog.Level, bool) { return r.minLevel, r.hasMinLevel }

// Dispatch writes e to every action of the route, in order. Entries below
// the route's minimum level are dropped. Every action receives the entry
// even if an earlier one failed; the errors are joined.
func (r *Route) Dispatch(ctx context.Context, e Entry) error {
	if r.hasMinLevel && e.Level < r.minLevel {
		return nil
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	if len(r.fields) > 0 {
		merged := make(map[string]any, len(r.fields)+len(e.Fields))
		for k, v := range r.fields {
			merged[k] = v
		}
		maps.Copy(merged, e.Fields)
		e.Fields = merged
	}

	var errs []error
	for _, a := range r.actions {
		if err := a.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// routeData is the decoded form of a route's configuration data.
type routeData struct {
	minLevel    slog.Level
	hasMinLevel bool
	fields      map[string]string
}

// decodeRouteData reads the optional min_level and fields attributes. Any
// other attribute is ignored so the data block can carry application values.
func decodeRouteData(data cty.Value) (routeData, error) {
	var out routeData
	if data == cty.NilVal || data.IsNull() || !data.IsKnown() {
		return out, nil
	}
	ty := data.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return out, fmt.Errorf("route data must be an object, got %s", ty.FriendlyName())
	}

	if v, ok := attr(data, "min_level"); ok {
		var name string
		if err := gocty.FromCtyValue(v, &name); err != nil {
			return out, fmt.Errorf("min_level: %w", err)
		}
		level, err := ParseLevel(name)
		if err != nil {
			return out, fmt.Errorf("min_level: %w", err)
		}
		out.minLevel, out.hasMinLevel = level, true
	}

	if v, ok := attr(data, "fields"); ok {
		asMap, err := convert.Convert(v, cty.Map(cty.String))
		if err != nil {
			return out, fmt.Errorf("fields must be a map of strings: %w", err)
		}
		if err := gocty.FromCtyValue(asMap, &out.fields); err != nil {
			return out, fmt.Errorf("fields: %w", err)
		}
	}
	return out, nil
}

func attr(v cty.Value, name string) (cty.Value, bool) {
	ty := v.Type()
	switch {
	case ty.IsObjectType():
		if !ty.HasAttribute(name) {
			return cty.NilVal, false
		}
		attrVal := v.GetAttr(name)
		return attrVal, !attrVal.IsNull()
	case ty.IsMapType():
		key := cty.StringVal(name)
		if !v.HasIndex(key).True() {
			return cty.NilVal, false
		}
		elem := v.Index(key)
		return elem, !elem.IsNull()
	}
	return cty.NilVal, false
}
