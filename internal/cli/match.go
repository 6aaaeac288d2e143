package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/Ramsey-B/rulematch/internal/app"
	"github.com/Ramsey-B/rulematch/pkg/models"
	"github.com/Ramsey-B/rulematch/pkg/sources/prometheus"
	"github.com/Ramsey-B/rulematch/pkg/sources/ruler"
)

const (
	outputJSON    = "json"
	outputYAML    = "yaml"
	outputSummary = "summary"
)

type matchOptions struct {
	configFile     string
	evaluationFile string
	namespace      string
	live           bool
	output         string
	failOnDrift    bool
}

// matchEnvPrefix lets CI set match flags through the environment, e.g. RULEMATCH_OUTPUT=json
const matchEnvPrefix = "RULEMATCH"

// ErrDrift is returned by match --fail-on-drift when the report is not clean
var ErrDrift = errors.New("configured and evaluated rules differ")

func newMatchCommand(rt *runtime) *cobra.Command {
	opts := &matchOptions{}
	v := viper.New()
	v.SetEnvPrefix(matchEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Reconcile configured rules with evaluated rules",
		Long: `Reconcile configured rules with evaluated rules and print the report.

Sources:
  --config       ruler YAML/JSON (namespace map or a single rule file), "-" for stdin
  --evaluation   Prometheus /api/v1/rules response
  --live         fetch both from RULER_URL and PROMETHEUS_URL instead`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// explicit flags win over RULEMATCH_* variables
			opts.output = v.GetString("output")
			opts.failOnDrift = v.GetBool("fail-on-drift")
			return runMatch(cmd, rt, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "configured rules document")
	flags.StringVar(&opts.evaluationFile, "evaluation", "", "evaluated rules document")
	flags.StringVar(&opts.namespace, "namespace", "", "namespace for a single rule file")
	flags.BoolVar(&opts.live, "live", false, "fetch rules from the configured APIs")
	flags.StringVarP(&opts.output, "output", "o", outputSummary, "summary, json or yaml")
	flags.BoolVar(&opts.failOnDrift, "fail-on-drift", false, "exit non-zero on drift or unmatched rules")
	for _, name := range []string{"output", "fail-on-drift"} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
	cmd.MarkFlagsMutuallyExclusive("live", "config")
	cmd.MarkFlagsMutuallyExclusive("live", "evaluation")

	return cmd
}

func runMatch(cmd *cobra.Command, rt *runtime, opts *matchOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.New(rt.cfg, rt.logger)
	if err != nil {
		return err
	}

	var configGroups, evaluationGroups []*models.RuleGroup
	if opts.live {
		configGroups, evaluationGroups, err = fetchLive(ctx, a)
	} else {
		configGroups, evaluationGroups, err = decodeFiles(cmd, a, opts)
	}
	if err != nil {
		return err
	}

	report, err := a.Service.Reconcile(ctx, configGroups, evaluationGroups)
	if err != nil {
		return err
	}

	if err := writeReport(cmd.OutOrStdout(), report, opts.output); err != nil {
		return err
	}

	if opts.failOnDrift && !clean(report) {
		return ErrDrift
	}
	return nil
}

func fetchLive(ctx context.Context, a *app.App) ([]*models.RuleGroup, []*models.RuleGroup, error) {
	if a.Ruler == nil || a.Prometheus == nil {
		return nil, nil, fmt.Errorf("--live requires RULER_URL and PROMETHEUS_URL")
	}

	var configGroups, evaluationGroups []*models.RuleGroup
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		configGroups, err = a.Ruler.Groups(gctx)
		return err
	})
	g.Go(func() (err error) {
		evaluationGroups, err = a.Prometheus.Groups(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return configGroups, evaluationGroups, nil
}

func decodeFiles(cmd *cobra.Command, a *app.App, opts *matchOptions) ([]*models.RuleGroup, []*models.RuleGroup, error) {
	if opts.configFile == "" && opts.evaluationFile == "" {
		return nil, nil, fmt.Errorf("either --live or at least one of --config and --evaluation is required")
	}

	var configGroups, evaluationGroups []*models.RuleGroup
	if opts.configFile != "" {
		data, err := readInput(cmd, opts.configFile)
		if err != nil {
			return nil, nil, err
		}
		if configGroups, err = ruler.Decode(data, opts.namespace); err != nil {
			return nil, nil, err
		}
	}
	if opts.evaluationFile != "" {
		data, err := readInput(cmd, opts.evaluationFile)
		if err != nil {
			return nil, nil, err
		}
		if evaluationGroups, err = prometheus.Decode(data, a.DecodeOptions()); err != nil {
			return nil, nil, err
		}
	}
	return configGroups, evaluationGroups, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func clean(report *models.Report) bool {
	totals := report.Totals()
	return totals.Drifted == 0 &&
		totals.UnmatchedConfig == 0 &&
		totals.UnmatchedEvaluation == 0 &&
		len(report.ConfigOnlyGroups) == 0 &&
		len(report.EvaluationOnlyGroups) == 0
}

func writeReport(w io.Writer, report *models.Report, output string) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	case outputSummary:
		return writeSummary(w, report)
	default:
		return fmt.Errorf("unsupported output format: %s", output)
	}
}

func writeSummary(w io.Writer, report *models.Report) error {
	totals := report.Totals()
	fmt.Fprintf(w, "matched: %d  drifted: %d  unmatched config: %d  unmatched evaluation: %d\n",
		totals.Matched, totals.Drifted, totals.UnmatchedConfig, totals.UnmatchedEvaluation)

	for _, group := range report.Groups {
		for _, pair := range group.Matched {
			if !pair.Drift.Any() {
				continue
			}
			fmt.Fprintf(w, "  drift      %s %s (%s)\n", group.Key, pair.Config.Name, driftFields(pair.Drift))
		}
		for _, rule := range group.UnmatchedConfig {
			fmt.Fprintf(w, "  not loaded %s %s\n", group.Key, rule.Name)
		}
		for _, rule := range group.UnmatchedEvaluation {
			fmt.Fprintf(w, "  not stored %s %s\n", group.Key, rule.Name)
		}
	}
	for _, key := range report.ConfigOnlyGroups {
		fmt.Fprintf(w, "  config only group     %s\n", key)
	}
	for _, key := range report.EvaluationOnlyGroups {
		fmt.Fprintf(w, "  evaluation only group %s\n", key)
	}
	return nil
}

func driftFields(d models.Drift) string {
	var fields []string
	if d.Labels {
		fields = append(fields, "labels")
	}
	if d.Annotations {
		fields = append(fields, "annotations")
	}
	if d.Query {
		fields = append(fields, "query")
	}
	return strings.Join(fields, ", ")
}
