package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/einvoice-tracker/tools/dashgen/dashboards"
	"github.com/donaldgifford/einvoice-tracker/tools/dashgen/rules"
	"github.com/donaldgifford/einvoice-tracker/tools/dashgen/validate"
)

const generatedHeader = "# Code generated by tools/dashgen. DO NOT EDIT.\n"

func main() {
	validateOnly := flag.Bool("validate", false, "validate generated artifacts without writing files")
	outputDir := flag.String("output", "", "override output directory")
	dailyLimit := flag.Int("daily-limit", 0, "override the portal daily call budget")
	plain := flag.Bool("plain", false, "write plain Prometheus rule files instead of PrometheusRule resources")
	flag.Parse()

	cfg := DefaultConfig()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *dailyLimit != 0 {
		cfg.PortalDailyLimit = *dailyLimit
	}
	cfg.PlainRules = *plain

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	written, err := run(cfg, *validateOnly)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *validateOnly {
		fmt.Println("validation passed")
		return
	}
	for _, p := range written {
		fmt.Printf("dashgen: wrote %s\n", p)
	}
}

type artifact struct {
	path string
	data []byte
}

// run builds and validates every enabled artifact, then writes them under
// cfg.OutputDir unless validateOnly is set. It returns the written paths.
func run(cfg Config, validateOnly bool) ([]string, error) {
	var (
		arts []artifact
		res  validate.Result
	)

	if cfg.DashboardEnabled {
		dash, err := dashboards.BuildOverview(cfg.PortalDailyLimit).Build()
		if err != nil {
			return nil, fmt.Errorf("building dashboard: %w", err)
		}
		res = validate.Dashboard(dash, KnownMetrics)

		data, err := dashboardJSON(dash)
		if err != nil {
			return nil, err
		}
		arts = append(arts, artifact{
			path: filepath.Join(cfg.OutputDir, "grafana", "data", dashboards.UID+".json"),
			data: data,
		})
	}

	if cfg.RulesEnabled {
		for _, pr := range []rules.PrometheusRule{rules.RecordingRules(), rules.AlertRules(cfg.PortalDailyLimit)} {
			v := validate.Exprs(pr.Exprs(), KnownMetrics)
			res.Errors = append(res.Errors, v.Errors...)
			res.Warnings = append(res.Warnings, v.Warnings...)

			data, err := rulesYAML(pr, cfg.PlainRules)
			if err != nil {
				return nil, err
			}
			arts = append(arts, artifact{
				path: filepath.Join(cfg.OutputDir, "prometheus", pr.Metadata.Name+".yaml"),
				data: data,
			})
		}
	}

	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	if !res.Ok() {
		return nil, fmt.Errorf("validation failed:\n  %s", strings.Join(res.Errors, "\n  "))
	}
	if validateOnly {
		return nil, nil
	}

	written := make([]string, 0, len(arts))
	var errs []error
	for _, a := range arts {
		if err := writeFile(a.path, a.data); err != nil {
			errs = append(errs, err)
			continue
		}
		written = append(written, a.path)
	}
	return written, errors.Join(errs...)
}

func dashboardJSON(dash dashboard.Dashboard) ([]byte, error) {
	data, err := json.MarshalIndent(dash, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding dashboard: %w", err)
	}
	return append(data, '\n'), nil
}

func rulesYAML(pr rules.PrometheusRule, plain bool) ([]byte, error) {
	var v any = pr
	if plain {
		v = pr.File()
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", pr.Metadata.Name, err)
	}
	return append([]byte(generatedHeader), data...), nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
