// Command leadctl runs the lead qualification engine from the terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"leadagent/internal/config"
	"leadagent/internal/conversation"
	"leadagent/internal/events"
	"leadagent/internal/logger"
	"leadagent/internal/model"
	"leadagent/internal/repository"
	"leadagent/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "leadctl",
		Short:        "Qualify real-estate leads from the command line",
		SilenceUsage: true,
	}
	root.AddCommand(newQualifyCmd(), newScoreCmd(), newWatchCmd())
	return root
}

type qualifyOptions struct {
	contact  string
	name     string
	channel  string
	session  string
	catalog  string
	agencyID int64
	verbose  bool
}

func newQualifyCmd() *cobra.Command {
	var opts qualifyOptions
	cmd := &cobra.Command{
		Use:   "qualify <message>",
		Short: "Run the full qualification pipeline against an in-memory store",
		Long: `Classifies the message with the configured OpenAI-compatible model
(OPENAI_API_KEY), applies the tier rules, scores intent and prints the outcome
as JSON. Without an API key the fallback result is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQualify(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.contact, "contact", "", "email or phone of the lead")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name of the lead")
	cmd.Flags().StringVar(&opts.channel, "channel", service.DefaultChannel, "inbound channel")
	cmd.Flags().StringVar(&opts.session, "session", "", "conversation session id")
	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "YAML property catalog used for scoring")
	cmd.Flags().Int64Var(&opts.agencyID, "agency", 0, "agency id whose catalog entries are scored")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline steps to stderr")
	return cmd
}

func runQualify(ctx context.Context, out io.Writer, message string, opts qualifyOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.Nop()
	if opts.verbose {
		if log, err = logger.New("dev"); err != nil {
			return err
		}
		defer log.Sync()
	}

	catalog, err := loadCatalog(opts.catalog)
	if err != nil {
		return err
	}
	store := repository.NewMemoryStore(catalog)

	var classifier service.Classifier
	if cfg.OpenAI.Enabled {
		classifier = service.NewOpenAIClient(&cfg.OpenAI, log)
	}

	agent := service.NewLeadAgent(service.LeadAgentDeps{
		Classifier:        classifier,
		Memory:            conversation.NewMemory(cfg.Conversation.MaxTurns),
		Leads:             store,
		Interactions:      store,
		Catalog:           store,
		ClassifierTimeout: cfg.Classifier.Timeout,
		Log:               log,
	})

	req := model.QualifyRequest{
		Message:   message,
		Channel:   opts.channel,
		SessionID: opts.session,
		Contact:   opts.contact,
		Name:      opts.name,
	}
	if opts.agencyID > 0 {
		req.AgencyID = &opts.agencyID
	} else if catalog != nil {
		// no agency: score against the whole file
		req.Catalog = catalog
	}

	return printJSON(out, agent.AnalyzeAndPersist(ctx, req))
}

type scoreOptions struct {
	area    string
	budget  float64
	urgency string
	catalog string
}

func newScoreCmd() *cobra.Command {
	var opts scoreOptions
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute the intent score of a lead profile against a catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := loadCatalog(opts.catalog)
			if err != nil {
				return err
			}

			var area *string
			if opts.area != "" {
				area = &opts.area
			}
			var budget *float64
			if cmd.Flags().Changed("budget") {
				budget = &opts.budget
			}

			score, tier := service.NewScorer().CalculateIntentScore(area, budget, service.NormalizeUrgency(opts.urgency), catalog)
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"intent_score": score,
				"tier":         tier,
			})
		},
	}
	cmd.Flags().StringVar(&opts.area, "area", "", "requested area")
	cmd.Flags().Float64Var(&opts.budget, "budget", 0, "budget in the catalog currency")
	cmd.Flags().StringVar(&opts.urgency, "urgency", "medium", "high, medium or low")
	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "YAML property catalog")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var addr, channel string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print qualification events published on Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = os.Getenv("REDIS_ADDR")
			}
			bus, err := events.NewRedisBus(cmd.Context(), addr, channel, logger.Nop())
			if err != nil {
				return err
			}
			defer bus.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(cmd.ErrOrStderr(), "watching %s on %s\n", channel, addr)
			err = bus.Subscribe(cmd.Context(), func(ev events.QualificationEvent) {
				raw, err := json.Marshal(ev)
				if err != nil {
					return
				}
				fmt.Fprintln(out, string(raw))
			})
			if err != nil && cmd.Context().Err() != nil {
				// interrupted
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "redis-addr", "", "Redis address (default $REDIS_ADDR)")
	cmd.Flags().StringVar(&channel, "channel", "lead-events", "Redis channel")
	return cmd
}

func loadCatalog(path string) ([]model.Property, error) {
	if path == "" {
		return nil, nil
	}
	return repository.LoadCatalog(path)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
