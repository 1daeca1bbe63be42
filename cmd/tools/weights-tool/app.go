package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"matchmaking-workers/internal/models"
	"matchmaking-workers/internal/ranking"
	"matchmaking-workers/internal/signals"
	"matchmaking-workers/pkg/weights"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

var (
	fileFlag = &cli.StringFlag{
		Name:    "file",
		Aliases: []string{"f"},
		Usage:   "Path to the weights file (YAML or JSON)",
		Value:   "configs/weights.yaml",
	}

	profileFlag = &cli.StringFlag{
		Name:    "profile",
		Aliases: []string{"p"},
		Usage:   "Weights profile id or persona",
		Value:   models.DefaultPersona,
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [text, json, yaml]",
		Value: formatText,
	}
)

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "weights-tool",
		Usage:   "Inspect weights files and score profiles offline",
		Version: version,
		Writer:  out,
		Flags:   []cli.Flag{fileFlag},
		Commands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "Check a weights file against the schema",
				Action: validateAction,
			},
			{
				Name:      "show",
				Usage:     "Print one weights profile as YAML",
				ArgsUsage: "<id-or-persona>",
				Action:    showAction,
			},
			{
				Name:      "score",
				Usage:     "Score two profile JSON files",
				ArgsUsage: "<profile-a.json> <profile-b.json>",
				Flags:     []cli.Flag{profileFlag, formatFlag},
				Action:    scoreAction,
			},
		},
	}
}

func validateAction(_ context.Context, cmd *cli.Command) error {
	path := cmd.String(fileFlag.Name)
	f, err := weights.LoadFile(path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.Root().Writer, "%s: ok (version %s, %d profiles, personas %v)\n",
		path, f.Version, len(f.Profiles), f.Personas())
	return err
}

func showAction(_ context.Context, cmd *cli.Command) error {
	ref := cmd.Args().First()
	if ref == "" {
		return fmt.Errorf("profile id or persona is required")
	}
	p, err := findProfile(cmd.String(fileFlag.Name), ref)
	if err != nil {
		return err
	}
	b, err := weights.MarshalProfileYAML(p)
	if err != nil {
		return err
	}
	_, err = cmd.Root().Writer.Write(b)
	return err
}

type scoreReport struct {
	WeightsProfileID string          `json:"weightsProfileId" yaml:"weightsProfileId"`
	OverallScore     float64         `json:"overallScore" yaml:"overallScore"`
	Confidence       float64         `json:"confidence" yaml:"confidence"`
	Passes           bool            `json:"passesThresholds" yaml:"passesThresholds"`
	Signals          []models.Signal `json:"signals" yaml:"signals"`
}

func scoreAction(_ context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("expected two profile files, got %d", cmd.Args().Len())
	}
	a, err := readProfile(cmd.Args().Get(0))
	if err != nil {
		return err
	}
	b, err := readProfile(cmd.Args().Get(1))
	if err != nil {
		return err
	}

	w := models.DefaultWeightsProfile()
	if ref := cmd.String(profileFlag.Name); ref != models.DefaultPersona {
		if w, err = findProfile(cmd.String(fileFlag.Name), ref); err != nil {
			return err
		}
	}

	eval := signals.NewEngine().Evaluate(a, b, w)
	s := ranking.Aggregate(eval)
	report := scoreReport{
		WeightsProfileID: w.ID,
		OverallScore:     s.Overall,
		Confidence:       s.Confidence,
		Passes:           ranking.Passes(s, w.Thresholds),
		Signals:          eval.Signals,
	}
	return writeReport(cmd.Root().Writer, cmd.String(formatFlag.Name), report)
}

func writeReport(out io.Writer, format string, r scoreReport) error {
	switch format {
	case formatJSON:
		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	case formatYAML:
		return yaml.NewEncoder(out).Encode(r)
	case formatText:
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	sorted := append([]models.Signal(nil), r.Signals...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Contribution > sorted[j].Contribution })

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tKIND\tSCORE\tWEIGHT\tCONTRIBUTION")
	for _, s := range sorted {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%.2f\n", s.Field, s.Type, s.Score, s.Weight, s.Contribution)
	}
	fmt.Fprintf(tw, "\noverall %.2f  confidence %.2f  passes %t  (weights %s)\n",
		r.OverallScore, r.Confidence, r.Passes, r.WeightsProfileID)
	return tw.Flush()
}

func findProfile(path, ref string) (*models.WeightsProfile, error) {
	f, err := weights.LoadFile(path)
	if err != nil {
		return nil, err
	}
	p, ok := f.Find(ref)
	if !ok {
		return nil, fmt.Errorf("no weights profile %q in %s", ref, path)
	}
	return p, nil
}

func readProfile(path string) (*models.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p models.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}
