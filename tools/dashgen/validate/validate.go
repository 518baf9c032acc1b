// Package validate checks generated dashboards and rule files: every
// PromQL expression must parse and reference only known metrics.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/prometheus/prometheus/promql/parser"

	"github.com/donaldgifford/pricely/tools/dashgen/rules"
)

// Result collects problems found during validation. Errors fail the run;
// warnings are reported but do not.
type Result struct {
	Errors   []string
	Warnings []string
}

// Ok reports whether no errors were found.
func (r *Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// panelJSON is the subset of the dashboard model validation needs. Working
// from the marshaled form keeps this independent of builder internals.
type panelJSON struct {
	Title   string      `json:"title"`
	Type    string      `json:"type"`
	Targets []target    `json:"targets"`
	Panels  []panelJSON `json:"panels"`
}

type target struct {
	Expr  string `json:"expr"`
	RefID string `json:"refId"`
}

// Dashboard validates every panel target in dash.
func Dashboard(dash dashboard.Dashboard, known map[string]bool) Result {
	var res Result

	data, err := json.Marshal(dash)
	if err != nil {
		res.errorf("marshaling dashboard: %v", err)
		return res
	}
	var doc struct {
		Panels []panelJSON `json:"panels"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		res.errorf("decoding dashboard: %v", err)
		return res
	}

	for _, p := range doc.Panels {
		if p.Type == "row" {
			for _, inner := range p.Panels {
				checkPanel(&res, p.Title+"/"+inner.Title, inner, known)
			}
			continue
		}
		checkPanel(&res, p.Title, p, known)
	}
	return res
}

func checkPanel(res *Result, name string, p panelJSON, known map[string]bool) {
	if p.Title == "" {
		res.warnf("panel %q has no title", name)
	}
	if len(p.Targets) == 0 {
		res.warnf("panel %q has no targets", name)
		return
	}
	for _, t := range p.Targets {
		where := fmt.Sprintf("panel %q target %s", name, t.RefID)
		checkExpr(res, where, t.Expr, known)
	}
}

// Rules validates every expression in cr. Recorded series names must also
// be known so dashboards can rely on them.
func Rules(cr rules.PrometheusRule, known map[string]bool) Result {
	var res Result
	for _, g := range cr.Spec.Groups {
		if len(g.Rules) == 0 {
			res.warnf("group %q has no rules", g.Name)
		}
		for _, r := range g.Rules {
			switch {
			case r.Record != "" && r.Alert != "":
				res.errorf("group %q: rule sets both record %q and alert %q", g.Name, r.Record, r.Alert)
				continue
			case r.Record != "":
				if !known[r.Record] {
					res.errorf("group %q: recorded series %q is not a known metric", g.Name, r.Record)
				}
				checkExpr(&res, fmt.Sprintf("record %q", r.Record), r.Expr, known)
			case r.Alert != "":
				checkExpr(&res, fmt.Sprintf("alert %q", r.Alert), r.Expr, known)
			default:
				res.errorf("group %q: rule has neither record nor alert", g.Name)
			}
		}
	}
	return res
}

func checkExpr(res *Result, where, expr string, known map[string]bool) {
	if strings.TrimSpace(expr) == "" {
		res.errorf("%s: empty expression", where)
		return
	}
	names, err := Metrics(expr)
	if err != nil {
		res.errorf("%s: %v", where, err)
		return
	}
	for _, n := range names {
		if !known[baseName(n)] {
			res.errorf("%s: unknown metric %q", where, n)
		}
	}
}

// Metrics parses expr and returns the sorted, de-duplicated metric names
// it selects.
func Metrics(expr string) ([]string, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", expr, err)
	}

	seen := map[string]bool{}
	parser.Inspect(node, func(n parser.Node, _ []parser.Node) error {
		if vs, ok := n.(*parser.VectorSelector); ok && vs.Name != "" {
			seen[vs.Name] = true
		}
		return nil
	})

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// baseName strips the series suffixes a histogram exposes.
func baseName(name string) string {
	for _, suffix := range []string{"_bucket", "_sum", "_count"} {
		if base, ok := strings.CutSuffix(name, suffix); ok {
			return base
		}
	}
	return name
}
