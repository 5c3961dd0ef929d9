// Package validate checks generated PromQL against the metrics the tracker
// actually exports.
package validate

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/prometheus/prometheus/promql/parser"
)

// Result collects validation findings. Errors make the artifact unusable;
// warnings flag queries that run but probably mean something else.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether there were no errors.
func (r *Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) merge(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

var histogramSuffixes = []string{"_bucket", "_sum", "_count"}

var rateFuncs = []string{"rate", "irate", "increase"}

// Expr parses one expression and checks every selector against known.
// Counters read without rate or increase produce a warning.
func Expr(expr string, known map[string]bool) Result {
	var res Result
	if strings.TrimSpace(expr) == "" {
		res.Errors = append(res.Errors, "empty expression")
		return res
	}

	node, err := parser.ParseExpr(expr)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("%q: %v", expr, err))
		return res
	}

	//nolint:errcheck // inspector never returns an error
	parser.Inspect(node, func(n parser.Node, path []parser.Node) error {
		vs, ok := n.(*parser.VectorSelector)
		if !ok {
			return nil
		}
		if !isKnown(vs.Name, known) {
			res.Errors = append(res.Errors, fmt.Sprintf("%q: unknown metric %s", expr, vs.Name))
			return nil
		}
		if strings.HasSuffix(vs.Name, "_total") && !underRate(path) {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%q: counter %s read without rate", expr, vs.Name))
		}
		return nil
	})
	return res
}

// Exprs validates a batch of expressions.
func Exprs(exprs []string, known map[string]bool) Result {
	var res Result
	for _, e := range exprs {
		res.merge(Expr(e, known))
	}
	return res
}

// Dashboard validates every query target in dash, row panels included.
func Dashboard(dash dashboard.Dashboard, known map[string]bool) Result {
	data, err := json.Marshal(dash)
	if err != nil {
		return Result{Errors: []string{fmt.Sprintf("encoding dashboard: %v", err)}}
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return Result{Errors: []string{fmt.Sprintf("decoding dashboard: %v", err)}}
	}

	var exprs []string
	collectExprs(tree, &exprs)
	if len(exprs) == 0 {
		return Result{Errors: []string{"dashboard has no queries"}}
	}
	return Exprs(exprs, known)
}

func collectExprs(v any, out *[]string) {
	switch t := v.(type) {
	case map[string]any:
		if e, ok := t["expr"].(string); ok {
			*out = append(*out, e)
		}
		for _, child := range t {
			collectExprs(child, out)
		}
	case []any:
		for _, child := range t {
			collectExprs(child, out)
		}
	}
}

func isKnown(name string, known map[string]bool) bool {
	if known[name] {
		return true
	}
	for _, s := range histogramSuffixes {
		if base, ok := strings.CutSuffix(name, s); ok && known[base] {
			return true
		}
	}
	return false
}

func underRate(path []parser.Node) bool {
	for _, n := range path {
		if c, ok := n.(*parser.Call); ok && slices.Contains(rateFuncs, c.Func.Name) {
			return true
		}
	}
	return false
}
