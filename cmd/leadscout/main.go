package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/leadscout/leadscout/pkg/config"
	"github.com/leadscout/leadscout/pkg/database"
	"github.com/leadscout/leadscout/pkg/gemini"
	"github.com/leadscout/leadscout/pkg/leads"
	"github.com/leadscout/leadscout/pkg/session"
	"github.com/leadscout/leadscout/pkg/usage"
	"github.com/spf13/cobra"
)

var (
	query string
	model string
)

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "leadscout",
		Short: "A terminal-based lead research assistant",
		Long:  `LeadScout finds people and companies matching a natural-language brief and keeps a running conversation so queries can build on each other.`,
		Run: func(cmd *cobra.Command, args []string) {
			if cfg.GoogleApiKey == "" {
				slog.Error("GOOGLE_API_KEY must be set")
				os.Exit(1)
			}
			if model != "" {
				cfg.CompletionModel = model
			}

			ctx := context.Background()

			completer, err := gemini.NewClient(ctx, cfg.GoogleApiKey, gemini.Options{
				Model:           cfg.CompletionModel,
				MaxOutputTokens: int32(cfg.MaxOutputTokens),
				ThinkingBudget:  int32(cfg.ThinkingBudget),
			})
			if err != nil {
				slog.Error("Failed to create completion client", "error", err)
				os.Exit(1)
			}

			// Usage tracking is optional in the CLI. No database means
			// the sink silently drops events.
			var db *database.PostgresDB
			if cfg.DatabaseURL != "" {
				db, err = database.NewPostgresDB(ctx, cfg.DatabaseURL)
				if err != nil {
					slog.Error("Failed to connect to database", "error", err)
					os.Exit(1)
				}
				defer db.Close()

				if err := db.InitSchema(ctx); err != nil {
					slog.Error("Failed to initialize schema", "error", err)
					os.Exit(1)
				}
			}

			sess := session.New(completer, usage.NewSink(db, "cli", "leadscout-cli"))

			if cmd.Flags().Changed("query") {
				if strings.TrimSpace(query) == "" {
					slog.Error("--query flag provided but empty")
					os.Exit(1)
				}
				entry, err := sess.Submit(ctx, query)
				if err != nil {
					slog.Error("Search failed", "error", err)
					os.Exit(1)
				}
				printResult(entry.Result)
				return
			}

			runInteractive(ctx, sess)
		},
	}

	rootCmd.Flags().StringVarP(&query, "query", "q", "", "Run a single search and exit")
	rootCmd.Flags().StringVarP(&model, "model", "m", "", "Override the completion model")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}

func runInteractive(ctx context.Context, sess *session.Session) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Describe who you're looking for. Type 'new' to start over, 'exit' to quit.")

	for {
		fmt.Print("> ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		input = strings.TrimSpace(input)

		switch input {
		case "":
			continue
		case "exit", "quit":
			return
		case "new":
			sess.StartNewChat()
			fmt.Println("Started a new chat.")
			continue
		}

		entry, err := sess.Submit(ctx, input)
		if err != nil {
			slog.Error("Search failed", "error", err)
			continue
		}
		printResult(entry.Result)
	}
}

func printResult(result *leads.Result) {
	if result == nil {
		return
	}

	switch result.Mode {
	case leads.ModeLead:
		if result.Explanation != "" {
			fmt.Println(result.Explanation)
		}
		for i, lead := range result.Leads {
			fmt.Printf("\n%d. %s (%s, %s)\n", i+1, lead.Name, lead.Industry, lead.Location)
			fmt.Printf("   Match %.0f%% | Heat %.0f%%\n", lead.MatchScore, lead.MarketHeat)
			fmt.Printf("   %s\n", lead.Description)
			if link := leads.ContactURL(leads.ContactEmail, lead.Email); link != "" {
				fmt.Printf("   %s\n", link)
			}
		}
		if len(result.FollowUps) > 0 {
			fmt.Println("\nTry next:")
			for _, f := range result.FollowUps {
				fmt.Printf("  - %s\n", f)
			}
		}
	case leads.ModeOutOfContext:
		fmt.Println(result.OutOfContextMessage)
	default:
		if result.Summary != "" {
			fmt.Println(result.Summary)
		}
		for _, p := range result.Paragraphs {
			fmt.Println()
			fmt.Println(p)
		}
	}
}
