package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"price-scout/src/models"

	"github.com/shopspring/decimal"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

var noColor bool

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

// -----------------------------------------------------------------------------
// Tables
// -----------------------------------------------------------------------------

func newTable(w io.Writer, header string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	return tw
}

// -----------------------------------------------------------------------------

func writeObservations(w io.Writer, observations []models.MObservation, best *models.MObservation) error {
	tw := newTable(w, "VENDOR\tSTATUS\tPRICE\tSTOCK\tMATCHED\tURL / MESSAGE")
	for _, o := range observations {
		vendor := string(o.Vendor)
		if best != nil && o.Vendor == best.Vendor {
			vendor = "*" + vendor
		}
		detail := o.URL
		if !o.Succeeded() {
			detail = o.Message
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", vendor, o.Status, formatPrice(o.Price), o.InStock, o.MatchedMPN, detail)
	}
	return tw.Flush()
}

// -----------------------------------------------------------------------------

func writeRecords(w io.Writer, records []models.MPriceRecord) error {
	tw := newTable(w, "ID\tVENDOR\tMPN\tPRICE\tFIRST SEEN\tLAST SEEN")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Vendor, r.MPN, r.Price.StringFixed(2), formatTime(r.FirstSeenAt), formatTime(r.LastSeenAt))
	}
	return tw.Flush()
}

// -----------------------------------------------------------------------------

func writeBatchResult(w io.Writer, res models.MBatchResult) {
	if res.Failed {
		fmt.Fprintf(w, "%s %s  %s\n", colorize(colorRed, "✗"), res.MPN, res.Error)
		return
	}
	b := res.Best
	fmt.Fprintf(w, "%s %s  %s at %s  %s\n", colorize(colorGreen, "✓"), res.MPN, formatPrice(b.Price), b.Vendor, b.URL)
}

// -----------------------------------------------------------------------------

func formatPrice(p *decimal.Decimal) string {
	if p == nil {
		return "-"
	}
	return "$" + p.StringFixed(2)
}

// -----------------------------------------------------------------------------

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
