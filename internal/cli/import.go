package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/estateops/estate-backend/internal/application/importer"
	"github.com/estateops/estate-backend/internal/infrastructure/logging"
	"github.com/estateops/estate-backend/internal/infrastructure/storage"
)

// ImportFlags holds the CLI flags for the import-statement command.
type ImportFlags struct {
	File          string
	Config        string
	Process       bool
	SkipUnmatched bool
	Atomic        bool
	SubmittedBy   string
	Verbose       bool
}

// ParseImportFlags parses command line flags for the import command.
func ParseImportFlags() *ImportFlags {
	flags := &ImportFlags{}
	flag.StringVar(&flags.File, "file", "", "Path to the bank statement (.csv or .xlsx)")
	flag.StringVar(&flags.Config, "config", "", "Path to config file")
	flag.BoolVar(&flags.Process, "process", false, "Create payment records after matching")
	flag.BoolVar(&flags.SkipUnmatched, "skip-unmatched", false, "Skip unmatched rows when processing")
	flag.BoolVar(&flags.Atomic, "atomic", false, "Refuse to process if any matched row would fail")
	flag.StringVar(&flags.SubmittedBy, "by", "cli", "Who is running the import")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	flag.Parse()
	return flags
}

// RunImport parses a statement file, matches its rows against residents and
// prints a summary. With -process it also creates payment records.
func RunImport(flags *ImportFlags) error {
	if flags.File == "" {
		return fmt.Errorf("-file is required")
	}

	cfg := loadConfig(flags.Config)
	if flags.Process {
		// A one-shot CLI run has no separate reviewer
		cfg.Import.RequireApproval = false
	}

	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "import")

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	content, err := os.ReadFile(flags.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", flags.File, err)
	}

	imp := importer.NewImporter(store, cfg, logger)

	record, err := imp.CreateImport(filepath.Base(flags.File), content, flags.SubmittedBy)
	if err != nil {
		var dup *importer.ErrDuplicateImport
		if errors.As(err, &dup) {
			return fmt.Errorf("%s was already imported (import %s)", flags.File, dup.ExistingID)
		}
		return err
	}

	fmt.Printf("Imported %s: %d rows, format %s, credits %s\n",
		record.FileName, record.TotalRows, record.BankFormat, record.TotalCredits.StringFixed(2))

	ctx := context.Background()

	summary, err := imp.MatchRows(ctx, record.ID)
	if err != nil {
		return err
	}

	printMatchSummary(summary)
	printUnmatchedRows(store, record.ID)

	if !flags.Process {
		fmt.Printf("\nImport %s left in status %q. Review and process it via the API.\n",
			record.ID, storage.ImportStatusPending)
		return nil
	}

	result, err := imp.ProcessImport(ctx, record.ID, importer.ProcessOptions{
		Atomic:         flags.Atomic,
		SkipDuplicates: true,
		SkipUnmatched:  flags.SkipUnmatched,
	})
	if err != nil {
		return err
	}

	printProcessResult(result)
	return nil
}

func printMatchSummary(summary *importer.MatchSummary) {
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Matching: Total=%d Matched=%d Unmatched=%d\n",
		summary.TotalRows, summary.Matched, summary.Unmatched)
}

func printUnmatchedRows(store storage.Repository, importID string) {
	rows, _, err := store.ListRows(importID, storage.RowFilters{Status: storage.RowStatusUnmatched})
	if err != nil || len(rows) == 0 {
		return
	}

	fmt.Println("\nUnmatched rows:")
	for _, row := range rows {
		fmt.Printf("  row %d: %s %s (%s)\n",
			row.RowNumber, row.TransactionDate.Format("2006-01-02"),
			row.Amount.StringFixed(2), row.Description)
	}
}

func printProcessResult(result *importer.ProcessResult) {
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Payments: Created=%d Duplicates=%d Skipped=%d Errors=%d\n",
		result.Created, result.Duplicates, result.Skipped, result.Errors)
}
