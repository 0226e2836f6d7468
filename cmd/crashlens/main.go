package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/crashlens/internal/aggregate"
	"github.com/lox/crashlens/internal/api"
	"github.com/lox/crashlens/internal/ingest"
	"github.com/lox/crashlens/internal/report"
	"github.com/lox/crashlens/internal/store"
)

type cli struct {
	DB string `help:"Path to SQLite database." env:"CRASHLENS_DB" default:"data/crashlens.db"`

	Import    importCmd    `cmd:"" help:"Import a crash extract CSV from disk."`
	Fetch     fetchCmd     `cmd:"" help:"Download a crash extract over HTTP and import it."`
	Normalize normalizeCmd `cmd:"" help:"Normalize line breaks in stored condition text."`
	Report    reportCmd    `cmd:"" help:"Condition breakdown for a category (ROAD, WEATHER, LIGHT)."`
	Risk      riskCmd      `cmd:"" help:"Rank road/weather condition pairs by composite risk."`
	Factors   factorsCmd   `cmd:"" help:"Prevalence and fatality share of the named risk factors."`
	Crosstab  crosstabCmd  `cmd:"" help:"Daylight vs dark crash counts per road condition."`
	Summary   summaryCmd   `cmd:"" help:"Rebuild the materialized condition summary."`
	Imports   importsCmd   `cmd:"" help:"Show recent import runs."`
	Serve     serveCmd     `cmd:"" help:"Run the JSON report server."`
}

type appContext struct {
	store *store.Store
}

func main() {
	var c cli
	ktx := kong.Parse(&c,
		kong.Name("crashlens"),
		kong.Description("Crash-incident aggregation and reporting pipeline."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)

	if err := os.MkdirAll(filepath.Dir(c.DB), 0o755); err != nil {
		log.Fatalf("create db directory: %v", err)
	}

	db, err := sql.Open("sqlite", c.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ktx.FatalIfErrorf(ktx.Run(&appContext{store: st}))
}

type importCmd struct {
	Path string `arg:"" help:"Path to the extract CSV."`
}

func (cmd *importCmd) Run(app *appContext) error {
	stats, err := ingest.NewImporter(app.store).ImportFile(cmd.Path)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d of %d records (%d parse errors)\n", stats.Stored, stats.Parsed, stats.ParseErrors)
	return nil
}

type fetchCmd struct {
	URL string `arg:"" help:"URL of the extract CSV."`
}

func (cmd *fetchCmd) Run(app *appContext) error {
	stats, err := ingest.NewImporter(app.store).ImportURL(ingest.NewFetcher(), cmd.URL)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d of %d records (%d parse errors)\n", stats.Stored, stats.Parsed, stats.ParseErrors)
	return nil
}

type normalizeCmd struct{}

func (cmd *normalizeCmd) Run(app *appContext) error {
	touched, err := app.store.NormalizeConditionText()
	if err != nil {
		return err
	}
	fmt.Printf("normalized %d rows\n", touched)
	return nil
}

type reportCmd struct {
	Category string `arg:"" help:"One of ROAD, WEATHER, LIGHT."`
}

func (cmd *reportCmd) Run(app *appContext) error {
	records, err := app.store.GetAllCrashes()
	if err != nil {
		return err
	}
	rows, err := report.ByCategory(records, report.Category(cmd.Category))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CONDITION\tCRASHES\tFATALITIES\tINJURIES\tAVG SEVERITY")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.2f\n",
			report.ConditionLabel(r.Condition), r.CrashCount, r.Fatalities, r.Injuries, r.AvgSeverity)
	}
	return tw.Flush()
}

type riskCmd struct{}

func (cmd *riskCmd) Run(app *appContext) error {
	records, err := app.store.GetAllCrashes()
	if err != nil {
		return err
	}
	rows, err := report.RiskByConditions(records)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROAD\tWEATHER\tCRASHES\tRISK SCORE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\n",
			report.ConditionLabel(r.RoadCondition), report.ConditionLabel(r.WeatherCondition),
			r.CrashCount, r.RiskScore)
	}
	return tw.Flush()
}

type factorsCmd struct{}

func (cmd *factorsCmd) Run(app *appContext) error {
	records, err := app.store.GetAllCrashes()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FACTOR\tCRASHES\tPREVALENCE %\tFATALITY SHARE %")
	for _, r := range report.Prevalence(records, report.DefaultFactors) {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\n", r.Name, r.Crashes, r.PrevalencePct, r.FatalitySharePct)
	}
	return tw.Flush()
}

type crosstabCmd struct{}

func (cmd *crosstabCmd) Run(app *appContext) error {
	records, err := app.store.GetAllCrashes()
	if err != nil {
		return err
	}
	rows, err := aggregate.CrossTab(records, aggregate.DimRoadCondition, aggregate.DaylightVsDark)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROAD CONDITION\tTOTAL\tDAYLIGHT\tDARK")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", report.ConditionLabel(r.Key), r.Total, r.Counts[0], r.Counts[1])
	}
	return tw.Flush()
}

type summaryCmd struct{}

func (cmd *summaryCmd) Run(app *appContext) error {
	n, err := report.NewMaterializer(app.store).Refresh()
	if err != nil {
		return err
	}
	fmt.Printf("materialized %d summary rows\n", n)
	return nil
}

type importsCmd struct {
	Limit int `help:"Number of runs to show." default:"10"`
}

func (cmd *importsCmd) Run(app *appContext) error {
	runs, err := app.store.GetRecentImportRuns(cmd.Limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSOURCE\tLOCATION\tSTORED\tERRORS\tOK")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%v\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Source, r.Location.String,
			r.RecordsStored.Int64, r.ParseErrors.Int64, r.Success)
	}
	return tw.Flush()
}

type serveCmd struct {
	Port string `help:"HTTP server port." env:"CRASHLENS_PORT" default:"8080"`
}

func (cmd *serveCmd) Run(app *appContext) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("starting report server on :%s", cmd.Port)
	return api.NewServer(app.store, cmd.Port).Run(ctx)
}
