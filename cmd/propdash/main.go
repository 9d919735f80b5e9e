package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"
	"go.uber.org/zap"

	"github.com/goliatone/go-property-dashboard/components/dashboard"
	"github.com/goliatone/go-property-dashboard/internal/app"
	"github.com/goliatone/go-property-dashboard/internal/config"
	"github.com/goliatone/go-property-dashboard/pkg/source"
)

type cli struct {
	Serve    serveCmd    `cmd:"" help:"Run the dashboard HTTP server."`
	Metrics  metricsCmd  `cmd:"" help:"Derive dashboard metrics from a JSON fixture."`
	Export   exportCmd   `cmd:"" help:"Write derived metrics to an XLSX workbook."`
	Layout   layoutCmd   `cmd:"" help:"Resolve the visible section order for given preferences."`
	Scaffold scaffoldCmd `cmd:"" name:"scaffold-section" help:"Add a section to a manifest and generate a provider stub."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "propdash:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	parser, err := kong.New(&cli{},
		kong.Name("propdash"),
		kong.Description("Property management dashboard server and tooling."),
		kong.UsageOnError(),
		kong.Writers(out, os.Stderr),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(out, (*io.Writer)(nil)),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return kctx.Run()
}

type serveCmd struct {
	Config string `short:"c" type:"path" default:"propdash.yaml" help:"Path to the YAML config file."`
}

func (cmd *serveCmd) Run(ctx context.Context) error {
	cfg, err := config.Load(cmd.Config)
	if err != nil {
		return err
	}
	logger, err := app.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	server, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() { errCh <- server.Listen() }()

	select {
	case err := <-errCh:
		server.Close()
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
			return err
		}
		return nil
	}
}

// RangeFlags selects the aggregation window the same way the HTTP query does.
type RangeFlags struct {
	Fixture string `required:"" type:"existingfile" help:"JSON snapshot with properties, tenants and maintenance_requests."`
	Range   string `help:"Range preset (this_month, last_month, last_30_days, last_90_days, year_to_date)."`
	Start   string `help:"Custom range start (RFC3339 or YYYY-MM-DD)."`
	End     string `help:"Custom range end (RFC3339 or YYYY-MM-DD)."`
	Now     string `help:"Reference time in RFC3339; defaults to the current time."`
}

func (f RangeFlags) report(ctx context.Context) (dashboard.MetricsReport, error) {
	now := time.Now()
	if f.Now != "" {
		parsed, err := time.Parse(time.RFC3339, f.Now)
		if err != nil {
			return dashboard.MetricsReport{}, fmt.Errorf("propdash: parse --now: %w", err)
		}
		now = parsed
	}
	rng, err := dashboard.ParseDateRange(f.Range, f.Start, f.End, now)
	if err != nil {
		return dashboard.MetricsReport{}, err
	}
	static, err := source.LoadFixture(f.Fixture)
	if err != nil {
		return dashboard.MetricsReport{}, err
	}
	snapshot, err := static.Snapshot(ctx, dashboard.ViewerContext{})
	if err != nil {
		return dashboard.MetricsReport{}, err
	}
	return dashboard.Derive(snapshot.MetricsInput(rng, now)), nil
}

type metricsCmd struct {
	RangeFlags `embed:""`
	Cards bool `help:"Print only the metric cards."`
}

func (cmd *metricsCmd) Run(ctx context.Context, out io.Writer) error {
	report, err := cmd.report(ctx)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if cmd.Cards {
		return encoder.Encode(report.Cards)
	}
	return encoder.Encode(report)
}

type exportCmd struct {
	RangeFlags `embed:""`
	Out string `short:"o" required:"" type:"path" help:"Destination .xlsx file."`
}

func (cmd *exportCmd) Run(ctx context.Context, out io.Writer) error {
	report, err := cmd.report(ctx)
	if err != nil {
		return err
	}
	data, err := dashboard.BuildMetricsXLSX(report)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cmd.Out), 0o755); err != nil {
		return fmt.Errorf("propdash: mkdir %s: %w", filepath.Dir(cmd.Out), err)
	}
	if err := os.WriteFile(cmd.Out, data, 0o644); err != nil {
		return fmt.Errorf("propdash: write %s: %w", cmd.Out, err)
	}
	fmt.Fprintf(out, "wrote %s\n", cmd.Out)
	return nil
}

type layoutCmd struct {
	Order    []string `help:"Stored section order (comma separated)."`
	Hidden   []string `help:"Hidden section ids (comma separated)."`
	Manifest string   `type:"existingfile" help:"Optional section manifest to register first."`
}

func (cmd *layoutCmd) Run(out io.Writer) error {
	registry := dashboard.NewSectionRegistry()
	if cmd.Manifest != "" {
		if _, err := registry.LoadManifestFile(cmd.Manifest); err != nil {
			return err
		}
	}
	for i, def := range dashboard.ResolveSections(cmd.Order, cmd.Hidden, registry) {
		fmt.Fprintf(out, "%d\t%s\t%s\n", i+1, def.ID, def.Title)
	}
	return nil
}

type scaffoldCmd struct {
	ID            string `name:"id" required:"" help:"Section id; normalized to snake_case."`
	Title         string `required:"" help:"Section heading."`
	Description   string `help:"One-line description used in manifests."`
	Position      int    `help:"Sort position among registered sections."`
	DefaultHidden bool   `name:"default-hidden" help:"Hide the section until the viewer shows it."`
	ManifestPath  string `required:"" type:"path" help:"Path to the section manifest YAML file to update."`
	ProviderOut   string `help:"File path for the generated provider stub (defaults to components/dashboard/providers/<id>_provider.go)."`
	Overwrite     bool   `help:"Overwrite an existing provider stub or manifest entry."`
	SkipProvider  bool   `name:"skip-provider" help:"Skip provider stub generation."`
}

func (cmd *scaffoldCmd) Run(out io.Writer) error {
	id := dashboard.NormalizeSectionID(cmd.ID)
	if id == "" {
		return errors.New("propdash: section id is required")
	}
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("propdash: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}

	entry := dashboard.SectionDefinition{
		ID:            id,
		Title:         cmd.Title,
		Description:   cmd.Description,
		DefaultHidden: cmd.DefaultHidden,
		Position:      cmd.Position,
	}
	replaced := false
	for idx := range doc.Sections {
		if doc.Sections[idx].ID != id {
			continue
		}
		if !cmd.Overwrite {
			return fmt.Errorf("propdash: manifest already defines section %s (use --overwrite to replace)", id)
		}
		doc.Sections[idx] = entry
		replaced = true
		break
	}
	if !replaced {
		doc.Sections = append(doc.Sections, entry)
	}
	sort.SliceStable(doc.Sections, func(i, j int) bool {
		return doc.Sections[i].Position < doc.Sections[j].Position
	})

	if err := writeManifest(manifestPath, doc); err != nil {
		return err
	}
	if cmd.SkipProvider {
		fmt.Fprintf(out, "added %s to %s\n", id, manifestPath)
		return nil
	}

	providerPath := cmd.ProviderOut
	if providerPath == "" {
		providerPath = filepath.Join("components", "dashboard", "providers", id+"_provider.go")
	}
	if err := writeProviderStub(providerPath, strcase.ToPascal(id)+"Provider", id, cmd.Overwrite); err != nil {
		return err
	}
	fmt.Fprintf(out, "added %s to %s and generated %s\n", id, manifestPath, providerPath)
	return nil
}

func loadOrInitManifest(path string) (*dashboard.SectionManifestDocument, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &dashboard.SectionManifestDocument{
				Version:  dashboard.ManifestVersion,
				Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
				Sections: []dashboard.SectionDefinition{},
				Source:   path,
			}, nil
		}
		return nil, fmt.Errorf("propdash: stat manifest: %w", err)
	}
	return dashboard.ReadManifest(path)
}

func writeManifest(path string, doc *dashboard.SectionManifestDocument) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("propdash: mkdir %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("propdash: create manifest %s: %w", path, err)
	}
	defer file.Close()
	return dashboard.EncodeManifest(file, doc)
}

func writeProviderStub(path, providerType, id string, overwrite bool) error {
	if _, err := os.Stat(path); err == nil && !overwrite {
		return fmt.Errorf("propdash: provider stub %s already exists (use --overwrite or --provider-out)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("propdash: mkdir provider dir: %w", err)
	}
	content := fmt.Sprintf(`package providers

import (
	"context"

	"github.com/goliatone/go-property-dashboard/components/dashboard"
)

// %[1]s fetches data for the %[2]s section.
type %[1]s struct{}

// New%[1]s builds the provider. Register it with
// registry.RegisterProvider(%[2]q, New%[1]s()).
func New%[1]s() dashboard.Provider {
	return &%[1]s{}
}

// Fetch returns the section payload.
func (p *%[1]s) Fetch(ctx context.Context, meta dashboard.SectionContext) (dashboard.SectionData, error) {
	return dashboard.SectionData{
		"section": meta.Section.ID,
		"range":   meta.Range,
	}, nil
}
`, providerType, id)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("propdash: write provider stub: %w", err)
	}
	return nil
}
