package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/haugom/procsight/internal/models"
	"github.com/haugom/procsight/internal/types"
	"github.com/haugom/procsight/pkg/aggregate"
	"github.com/haugom/procsight/pkg/analyze"
	cfgPkg "github.com/haugom/procsight/pkg/config"
	"github.com/haugom/procsight/pkg/docintel"
	"github.com/haugom/procsight/pkg/fetcher"
	"github.com/haugom/procsight/pkg/pipeline"
	"github.com/haugom/procsight/pkg/report"
	"github.com/haugom/procsight/pkg/store"
	"github.com/schollz/progressbar/v3"
)

type Flags struct {
	ConfigPath string
	IndexURL   string
	OutPath    string
	OutFormat  string
	Archive    bool
	Check      bool
	Chart      bool
	Paths      []string
}

func main() {
	flags := parseFlags()

	if err := run(flags); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags

	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&flags.IndexURL, "index-url", "", "Index page URL to fetch documents from")
	flag.StringVar(&flags.OutPath, "out", "", "Write the report to a file")
	flag.StringVar(&flags.OutFormat, "format", "csv", "Report file format: csv or json")
	flag.BoolVar(&flags.Archive, "archive", false, "Archive insights to Postgres (needs DATABASE_URL)")
	flag.BoolVar(&flags.Check, "check", false, "Validate configuration and service connectivity, then exit")
	flag.BoolVar(&flags.Chart, "chart", true, "Render the contract value chart")
	flag.Parse()

	flags.Paths = flag.Args()
	return flags
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(flags Flags) error {
	cfg, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	// Credentials are checked before any network call is made
	if err := cfg.CheckCredentials(); err != nil {
		return err
	}

	docClient, err := docintel.NewWithConfig(docintel.ClientConfig{
		Endpoint:     cfg.FormRecognizer.Endpoint,
		Key:          cfg.FormRecognizer.Key,
		Model:        cfg.FormRecognizer.Model,
		APIVersion:   cfg.FormRecognizer.APIVersion,
		PollInterval: time.Duration(cfg.FormRecognizer.PollSeconds) * time.Second,
		PollTimeout:  time.Duration(cfg.FormRecognizer.PollTimeoutSeconds) * time.Second,
		RateLimit:    cfg.FormRecognizer.RateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize document client: %v", err)
	}

	textClient, err := analyze.NewWithConfig(analyze.ClientConfig{
		Endpoint:     cfg.TextAnalytics.Endpoint,
		Key:          cfg.TextAnalytics.Key,
		APIVersion:   cfg.TextAnalytics.APIVersion,
		MaxChunkSize: cfg.TextAnalytics.MaxChunkSize,
		RateLimit:    cfg.TextAnalytics.RateLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize text analytics client: %v", err)
	}

	aggregator := aggregate.New(aggregate.Rules{
		HighBelow:         cfg.Risk.HighBelow,
		LowAbove:          cfg.Risk.LowAbove,
		CompliancePhrases: cfg.Risk.CompliancePhrases,
		RiskPhrases:       cfg.Risk.RiskPhrases,
	})

	ctx := context.Background()

	if flags.Check {
		spinner := getSpinner("Checking service connectivity...")
		p, err := pipeline.New(pipeline.Config{
			Documents:  docClient,
			Text:       textClient,
			Aggregator: aggregator,
		})
		if err != nil {
			return err
		}
		err = p.Preflight(ctx)
		spinner.Finish()
		if err != nil {
			return err
		}
		color.Green("✓ Configuration and service connectivity verified")
		return nil
	}

	docs, err := collectDocuments(ctx, flags, cfg)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no documents to process; pass a file or directory, or use -index-url")
	}

	color.Blue("\nProcessing %d procurement documents\n", len(docs))
	bar := getProgressBar(len(docs), "📄 Analyzing documents...")

	p, err := pipeline.New(pipeline.Config{
		Documents:  docClient,
		Text:       textClient,
		Aggregator: aggregator,
		OnProgress: func(name string) {
			bar.Add(1)
		},
	})
	if err != nil {
		return err
	}

	results := p.Run(ctx, docs)
	bar.Finish()
	fmt.Println()

	rep := report.New(results, report.Options{
		Currency:   cfg.Report.Currency,
		TopPhrases: cfg.Report.TopPhrases,
	})

	fmt.Println(rep.Summary())
	fmt.Println(rep.Table())
	if flags.Chart {
		if chart := rep.Chart(); chart != "" {
			fmt.Println(chart)
		}
	}

	for _, failure := range rep.Failures() {
		color.Red("✗ %s", failure)
	}

	if flags.OutPath != "" {
		if err := writeReport(rep, flags.OutPath, flags.OutFormat); err != nil {
			return err
		}
		color.Green("✓ Report written to %s", flags.OutPath)
	}

	if flags.Archive {
		if err := archiveResults(ctx, cfg, results); err != nil {
			return err
		}
		color.Green("✓ Insights archived")
	}

	return nil
}

func collectDocuments(ctx context.Context, flags Flags, cfg *cfgPkg.Config) ([]models.RawDocument, error) {
	var docs []models.RawDocument

	for _, path := range flags.Paths {
		loaded, err := pipeline.LoadDocuments(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}

	if flags.IndexURL != "" {
		spinner := getSpinner("🌐 Fetching documents from index...")
		f, err := fetcher.NewWithConfig(fetcher.FetcherConfig{
			IndexURL:     flags.IndexURL,
			RateLimit:    cfg.Fetcher.RateLimit,
			MaxDocuments: cfg.Fetcher.MaxDocuments,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize fetcher: %v", err)
		}

		fetched, err := f.Fetch(ctx)
		spinner.Finish()
		if err != nil {
			return nil, fmt.Errorf("failed to fetch documents: %v", err)
		}
		color.Green("✓ Fetched %d documents\n", len(fetched))
		docs = append(docs, fetched...)
	}

	return docs, nil
}

func writeReport(rep *report.Report, path, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %v", err)
	}
	defer f.Close()

	switch format {
	case "json":
		return rep.WriteJSON(f)
	case "csv":
		return rep.WriteCSV(f)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func archiveResults(ctx context.Context, cfg *cfgPkg.Config, results []models.DocumentResult) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("archive requested but DATABASE_URL is not set")
	}

	var s types.InsightStore
	s, err := store.NewWithConfig(store.StoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	insights := make([]models.ProcurementInsight, 0, len(results))
	for _, res := range results {
		insights = append(insights, res.Insight)
	}
	return s.Save(ctx, insights)
}
