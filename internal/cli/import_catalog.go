package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/catalog"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	auditdb "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

// CatalogEntry is one title in an import file.
type CatalogEntry struct {
	Title           string `json:"title" yaml:"title"`
	Author          string `json:"author" yaml:"author"`
	Description     string `json:"description" yaml:"description"`
	PublicationYear int    `json:"publicationYear" yaml:"publicationYear"`
	Quantity        int    `json:"quantity" yaml:"quantity"`
}

// ImportCatalogCommand bulk-loads titles from a JSON or YAML file.
type ImportCatalogCommand struct {
	FilePath     string
	DatabasePath string
	Verbose      bool
	DryRun       bool
}

// ImportResult counts what one import did.
type ImportResult struct {
	Imported int
	Failed   int
}

func NewImportCatalogCommand() *ImportCatalogCommand {
	return &ImportCatalogCommand{}
}

func (cmd *ImportCatalogCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import-catalog", flag.ContinueOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to a .json, .yaml or .yml file with a list of titles (required)")
	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the database file (defaults to DATABASE_PATH)")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print every imported title")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Validate the file without writing to the database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-catalog -file <path> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import titles into the catalog. Each entry needs title, author,\n")
		fmt.Fprintf(os.Stderr, "publicationYear and quantity; description is optional.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import-catalog -file titles.yaml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import-catalog -file titles.json -dry-run -verbose\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}

	return nil
}

// ParseCatalogFile reads entries from path, choosing the decoder by extension.
func ParseCatalogFile(path string) ([]CatalogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var entries []CatalogEntry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &entries)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		return nil, fmt.Errorf("unsupported catalog file %q: use .json, .yaml or .yml", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return entries, nil
}

func (cmd *ImportCatalogCommand) Run(cfg *config.Config) error {
	fmt.Println("Catalog Import")
	fmt.Println("==============")

	if cmd.DryRun {
		fmt.Println("DRY RUN MODE - No changes will be made")
		fmt.Println()
	}

	entries, err := ParseCatalogFile(cmd.FilePath)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d titles in %s\n", len(entries), cmd.FilePath)

	if cmd.DryRun {
		for _, e := range entries {
			fmt.Printf("  - %s by %s (%d), %d copies\n", e.Title, e.Author, e.PublicationYear, e.Quantity)
		}
		return nil
	}

	dbPath := cmd.DatabasePath
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	events := audit.NewService(auditdb.NewRepository(db.DB))
	defer events.Wait()

	result := cmd.importEntries(context.Background(), catalog.NewService(db, nil, events), entries)

	fmt.Println()
	fmt.Printf("Imported: %d\n", result.Imported)
	fmt.Printf("Failed:   %d\n", result.Failed)
	if result.Failed > 0 {
		return fmt.Errorf("%d of %d titles could not be imported", result.Failed, len(entries))
	}
	return nil
}

// importEntries adds each entry on its own so one bad row does not stop the rest.
func (cmd *ImportCatalogCommand) importEntries(ctx context.Context, titles *catalog.Service, entries []CatalogEntry) ImportResult {
	var result ImportResult
	for i, e := range entries {
		title, err := titles.Add(ctx, entities.Principal{}, catalog.TitleInput{
			Title:           e.Title,
			Author:          e.Author,
			Description:     e.Description,
			PublicationYear: e.PublicationYear,
			Quantity:        e.Quantity,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "  entry %d (%q): %v\n", i+1, e.Title, err)
			result.Failed++
			continue
		}
		result.Imported++
		if cmd.Verbose {
			fmt.Printf("  + [%d] %s by %s\n", title.ID, title.Title, title.Author)
		}
	}
	return result
}
