package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"price-scout/src/analysis"
	"price-scout/src/csvio"
	"price-scout/src/data_source/extractors"
	"price-scout/src/interfaces"
	"price-scout/src/models"
	"price-scout/src/scheduler"
	"price-scout/src/server"

	"github.com/spf13/cobra"
)

// --- fetch ---

var fetchCmd = &cobra.Command{
	Use:   "fetch <mpn>",
	Short: "Look up one part across all vendors",
	Long: `Look up one manufacturer part number across the configured vendors and
print one row per vendor. The cheapest offer is marked with '*'.

Examples:
  pricescout fetch 100-100001015BOX
  pricescout fetch CT1000P3SSD8 --vendors scorptec,mwave --save
  pricescout fetch CT1000P3SSD8 --detailed`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawVendors, _ := cmd.Flags().GetStringSlice("vendors")
		save, _ := cmd.Flags().GetBool("save")
		detailed, _ := cmd.Flags().GetBool("detailed")
		apiOnly, _ := cmd.Flags().GetBool("api-only")

		if detailed && apiOnly {
			return fmt.Errorf("--detailed and --api-only are mutually exclusive")
		}
		mode := extractors.ModeAuto
		switch {
		case detailed:
			mode = extractors.ModeDetailed
		case apiOnly:
			mode = extractors.ModeAPI
		}

		app, err := loadApplication()
		if err != nil {
			return err
		}
		defer app.Close()

		orchestrator, err := setupOrchestrator(app.Config.MConfig, mode, app.Logger)
		if err != nil {
			return err
		}
		vendors, err := parseVendorFlag(rawVendors, orchestrator.Vendors())
		if err != nil {
			return err
		}

		mpn := args[0]
		printStep("Fetching %s from %d vendors", mpn, len(vendors))
		observations, err := orchestrator.FetchAll(cmd.Context(), mpn, vendors, app.Config.Deadline())
		if err != nil {
			return err
		}

		best := scheduler.SelectBest(observations)
		if err := writeObservations(cmd.OutOrStdout(), observations, best); err != nil {
			return err
		}
		if best == nil {
			printWarning("No vendor returned a price for %s", mpn)
		} else {
			printSuccess("Lowest price: %s at %s", formatPrice(best.Price), best.Vendor)
		}

		if save {
			store, err := app.Store()
			if err != nil {
				return err
			}
			recordObservations(cmd.Context(), store, observations)
		}
		return nil
	},
}

// --- batch ---

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Look up every part listed in a CSV file",
	Long: `Read part numbers from the 'mpn' (or 'name') column of a CSV file, look each
one up across the configured vendors and write a CSV with the lowest price
per part and one price/url column pair per vendor.

Examples:
  pricescout batch --in parts.csv --out prices.csv
  pricescout batch --in parts.csv --vendors umart,cpl --save`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, _ := cmd.Flags().GetString("in")
		out, _ := cmd.Flags().GetString("out")
		rawVendors, _ := cmd.Flags().GetStringSlice("vendors")
		save, _ := cmd.Flags().GetBool("save")

		mpns, err := readMPNFile(in)
		if err != nil {
			return err
		}

		app, err := loadApplication()
		if err != nil {
			return err
		}
		defer app.Close()

		orchestrator, err := setupOrchestrator(app.Config.MConfig, extractors.ModeAuto, app.Logger)
		if err != nil {
			return err
		}
		vendors, err := parseVendorFlag(rawVendors, orchestrator.Vendors())
		if err != nil {
			return err
		}

		var recorder interfaces.IPriceRecorder
		if save || app.Config.Batch.Record {
			store, err := app.Store()
			if err != nil {
				return err
			}
			recorder = store
		}

		printStep("Fetching %d parts from %d vendors", len(mpns), len(vendors))
		sched := setupScheduler(app.Config, orchestrator, recorder)
		run, err := sched.Run(cmd.Context(), mpns, vendors, nil)
		if err != nil {
			return err
		}

		results := make([]models.MBatchResult, 0, run.Total)
		failed := 0
		for res := range run.Results {
			writeBatchResult(os.Stderr, res)
			if res.Failed {
				failed++
			}
			results = append(results, res)
		}

		if err := writeResultFile(out, results, vendors); err != nil {
			return err
		}
		if len(results) < len(mpns) {
			printWarning("Cancelled after %d of %d parts", len(results), len(mpns))
		}
		printSuccess("%d parts priced, %d failed", len(results)-failed, failed)
		return nil
	},
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded price points",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rawVendor, _ := cmd.Flags().GetString("vendor")
		mpn, _ := cmd.Flags().GetString("mpn")

		v, err := parseOptionalVendor(rawVendor)
		if err != nil {
			return err
		}

		store, closeFn, err := openStore()
		if err != nil {
			return err
		}
		defer closeFn()

		records, err := store.History(cmd.Context(), v, mpn)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			printWarning("No price history recorded")
			return nil
		}
		return writeRecords(cmd.OutOrStdout(), records)
	},
}

// --- latest ---

var latestCmd = &cobra.Command{
	Use:   "latest <mpn>",
	Short: "Show the most recently seen price per vendor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openStore()
		if err != nil {
			return err
		}
		defer closeFn()

		latest, err := store.Latest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(latest) == 0 {
			printWarning("No price history recorded for %s", args[0])
			return nil
		}

		vendors := make([]models.Vendor, 0, len(latest))
		for v := range latest {
			vendors = append(vendors, v)
		}
		models.SortVendors(vendors)

		records := make([]models.MPriceRecord, 0, len(vendors))
		for _, v := range vendors {
			records = append(records, latest[v])
		}
		return writeRecords(cmd.OutOrStdout(), records)
	},
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise recorded price points",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rawVendor, _ := cmd.Flags().GetString("vendor")
		v, err := parseOptionalVendor(rawVendor)
		if err != nil {
			return err
		}

		store, closeFn, err := openStore()
		if err != nil {
			return err
		}
		defer closeFn()

		stats, err := store.Stats(cmd.Context(), v)
		if err != nil {
			return err
		}

		scope := "all vendors"
		if v != "" {
			scope = string(v)
		}
		fmt.Fprintln(os.Stderr, colorize(colorBold, "Price statistics ("+scope+")"))
		printStatus("Price points", "%d", stats.Count)
		if stats.Count == 0 {
			return nil
		}
		printStatus("Min", "$%s", stats.Min.StringFixed(2))
		printStatus("Max", "$%s", stats.Max.StringFixed(2))
		printStatus("Average", "$%s", stats.Avg.StringFixed(2))
		printStatus("Std dev", "%s", stats.StdDev.StringFixed(2))
		return nil
	},
}

// --- trends ---

var trendsCmd = &cobra.Command{
	Use:   "trends <mpn>",
	Short: "Show how each vendor's price for a part has moved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openStore()
		if err != nil {
			return err
		}
		defer closeFn()

		mpn := args[0]
		grouped, err := store.Trends(cmd.Context(), mpn)
		if err != nil {
			return err
		}
		if len(grouped) == 0 {
			printWarning("No price history recorded for %s", mpn)
			return nil
		}

		vendors := make([]models.Vendor, 0, len(grouped))
		for v := range grouped {
			vendors = append(vendors, v)
		}
		models.SortVendors(vendors)

		tw := newTable(cmd.OutOrStdout(), "VENDOR\tPOINTS\tFIRST\tCURRENT\tLOW\tHIGH\tCHANGE\tSINCE")
		for _, v := range vendors {
			t := analysis.SummarizeTrend(v, mpn, grouped[v])
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s%%\t%s\n", t.Vendor, t.Points,
				t.First.StringFixed(2), t.Current.StringFixed(2), t.Low.StringFixed(2), t.High.StringFixed(2),
				t.ChangePct.StringFixed(2), formatTime(t.Since))
		}
		return tw.Flush()
	},
}

// --- mpns ---

var mpnsCmd = &cobra.Command{
	Use:   "mpns",
	Short: "List every part with recorded prices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openStore()
		if err != nil {
			return err
		}
		defer closeFn()

		mpns, err := store.MPNs(cmd.Context())
		if err != nil {
			return err
		}
		for _, mpn := range mpns {
			fmt.Fprintln(cmd.OutOrStdout(), mpn)
		}
		return nil
	},
}

// --- prune ---

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete price points not seen for a number of days",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			return fmt.Errorf("--days must be greater than 0")
		}

		store, closeFn, err := openStore()
		if err != nil {
			return err
		}
		defer closeFn()

		cutoff := time.Now().AddDate(0, 0, -days)
		n, err := store.Prune(cmd.Context(), cutoff)
		if err != nil {
			return err
		}
		printSuccess("Deleted %d price points last seen before %s", n, formatTime(cutoff))
		return nil
	},
}

// --- serve ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API and live batch feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApplication()
		if err != nil {
			return err
		}
		defer app.Close()

		orchestrator, err := setupOrchestrator(app.Config.MConfig, extractors.ModeAuto, app.Logger)
		if err != nil {
			return err
		}
		store, err := app.Store()
		if err != nil {
			return err
		}

		var recorder interfaces.IPriceRecorder
		if app.Config.Batch.Record {
			recorder = store
		}
		srv := server.NewAPIServer(app.Config.MConfig, orchestrator, setupScheduler(app.Config, orchestrator, recorder), store, app.Logger.Named("API"))

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}

		app.Logger.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(ctx)
	},
}

func init() {
	fetchCmd.Flags().StringSlice("vendors", nil, "comma separated vendors to query (default: all enabled)")
	fetchCmd.Flags().Bool("save", false, "record successful prices in the history")
	fetchCmd.Flags().Bool("detailed", false, "try rendered pages before the vendor API")
	fetchCmd.Flags().Bool("api-only", false, "skip rendered pages")

	batchCmd.Flags().String("in", "", "input CSV with an mpn or name column (required)")
	batchCmd.Flags().String("out", "", "output CSV (default: stdout)")
	batchCmd.Flags().StringSlice("vendors", nil, "comma separated vendors to query (default: all enabled)")
	batchCmd.Flags().Bool("save", false, "record successful prices in the history")
	_ = batchCmd.MarkFlagRequired("in")

	historyCmd.Flags().String("vendor", "", "only this vendor")
	historyCmd.Flags().String("mpn", "", "only this part")

	statsCmd.Flags().String("vendor", "", "only this vendor")

	pruneCmd.Flags().Int("days", 0, "delete points last seen more than this many days ago (required)")
	_ = pruneCmd.MarkFlagRequired("days")
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// openStore loads the configuration and opens only the history database.
func openStore() (interfaces.IPriceStore, func(), error) {
	app, err := loadApplication()
	if err != nil {
		return nil, nil, err
	}
	store, err := app.Store()
	if err != nil {
		app.Close()
		return nil, nil, err
	}
	return store, app.Close, nil
}

// -----------------------------------------------------------------------------

func parseVendorFlag(raw []string, def []models.Vendor) ([]models.Vendor, error) {
	var out []models.Vendor
	for _, name := range raw {
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		v, err := models.ParseVendor(name)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		out = def
	}
	if len(out) == 0 {
		return nil, errors.New("no vendors enabled")
	}
	models.SortVendors(out)
	return out, nil
}

// -----------------------------------------------------------------------------

func parseOptionalVendor(raw string) (models.Vendor, error) {
	if raw == "" {
		return "", nil
	}
	return models.ParseVendor(raw)
}

// -----------------------------------------------------------------------------

func readMPNFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()
	return csvio.ReadMPNs(f)
}

// -----------------------------------------------------------------------------

func writeResultFile(path string, results []models.MBatchResult, vendors []models.Vendor) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := csvio.WriteResults(w, results, vendors); err != nil {
		return err
	}
	if path != "" {
		printStatus("Written", "%s", path)
	}
	return nil
}

// -----------------------------------------------------------------------------

func recordObservations(ctx context.Context, store interfaces.IPriceRecorder, observations []models.MObservation) {
	for _, o := range observations {
		if !o.Succeeded() {
			continue
		}
		res, err := store.Record(ctx, o)
		if err != nil {
			printError("Failed to record %s: %v", o.Vendor, err)
			continue
		}
		printStatus(string(o.Vendor), "%s %s", res.Action, res.Record.Price.StringFixed(2))
	}
}
