package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"filedex/internal/app"
	"filedex/internal/config"
	"filedex/internal/model"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "IngestFile", "Search").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// username returns the --user flag value, falling back to the OS user.
func username(cmd *cobra.Command) (string, error) {
	user, _ := cmd.Flags().GetString("user")
	if user != "" {
		return user, nil
	}
	if user = os.Getenv("USER"); user != "" {
		return user, nil
	}
	return "", fmt.Errorf("cannot determine user, pass --user")
}

func printEntry(e model.Entry) {
	fmt.Printf("Stored:   %s\n", e.StoredPath)
	fmt.Printf("Category: %s\n", e.Category)
	fmt.Printf("MIME:     %s\n", e.MIME)
	fmt.Printf("SHA-256:  %s\n", e.SHA256)
	if len(e.JSONKeys) > 0 {
		fmt.Printf("Keys:     %s\n", strings.Join(e.JSONKeys, ", "))
	}
}

func printEntryList(entries []model.Entry) {
	if len(entries) == 0 {
		fmt.Println("No entries.")
		return
	}
	for _, e := range entries {
		fmt.Printf("#%d  %-6s  %s  %s\n",
			e.ID,
			e.Category,
			e.AddedAt.Format("2006-01-02 15:04:05"),
			e.StoredPath,
		)
	}
}

var rootCmd = &cobra.Command{
	Use:   "filedex",
	Short: "Per-user file ingestion and search",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Workers:  %d\n", cfg.Workers)
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Ingest a file into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := username(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("IngestFile")
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.IngestFile(user, args[0])
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", args[0], err)
		}

		printEntry(entry)
		return nil
	},
}

// add-json command
var addJSONCmd = &cobra.Command{
	Use:   "add-json [TEXT]",
	Short: "Ingest pasted JSON text",
	Long: "Ingest raw JSON text into the store. The text may be passed as an\n" +
		"argument, read from a file with --file, or piped on stdin.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := username(cmd)
		if err != nil {
			return err
		}

		var raw string
		fromFile, _ := cmd.Flags().GetString("file")
		switch {
		case fromFile != "":
			data, err := os.ReadFile(fromFile)
			if err != nil {
				return fmt.Errorf("reading %s: %w", fromFile, err)
			}
			raw = string(data)
		case len(args) == 1:
			raw = args[0]
		default:
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			raw = string(data)
		}

		a, err := newApp("IngestJSONText")
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.IngestJSONText(user, raw)
		if err != nil {
			return fmt.Errorf("ingesting json: %w", err)
		}

		printEntry(entry)
		return nil
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search [QUERY]",
	Short: "Search the store",
	Long: "Search stored files by name and content. A leading \"type:CATEGORY\"\n" +
		"token restricts results to one category, e.g. \"type:json invoice\".",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := username(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("Search")
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Search(user, strings.Join(args, " "))
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}

		for _, r := range results {
			marker := " "
			if r.Missing {
				marker = "!"
			}
			fmt.Printf("%s %-6s  %-10s  %s\n", marker, r.Category, r.Source, r.DisplayName)
			if r.Preview != "" {
				fmt.Println(indent(r.Preview, "    "))
			}
		}
		return nil
	},
}

// recent command
var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "View recently ingested entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		user, err := username(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("Recent")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Recent(user, limit)
		if err != nil {
			return err
		}

		printEntryList(entries)
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every catalog entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := username(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("ListAll")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.All(user)
		if err != nil {
			return err
		}

		printEntryList(entries)
		return nil
	},
}

// list-json command
var listJSONCmd = &cobra.Command{
	Use:   "list-json",
	Short: "List json-category entries with their metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := username(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("ListJSON")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.JSONOnly(user)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No entries.")
			return nil
		}

		for _, e := range entries {
			fmt.Printf("#%d  %s  keys: %s\n", e.ID, e.StoredPath, strings.Join(e.JSONKeys, ", "))
			if e.JSONPreview != "" {
				fmt.Println(indent(e.JSONPreview, "    "))
			}
		}
		return nil
	},
}

// folder command
var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Print the user's storage folder, creating it if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := username(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("FolderPath")
		if err != nil {
			return err
		}
		defer a.Close()

		root, err := a.FolderPath(user)
		if err != nil {
			return err
		}

		fmt.Println(root)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		user, err := username(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(user, limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func init() {
	rootCmd.PersistentFlags().String("user", "", "Username owning the store (default: $USER)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(addJSONCmd)
	addJSONCmd.Flags().StringP("file", "f", "", "Read JSON text from a file instead of stdin")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(recentCmd)
	recentCmd.Flags().IntP("limit", "n", 10, "Maximum number of entries to show")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(listJSONCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
