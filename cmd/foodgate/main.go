package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zen-systems/foodgate/pkg/adapter"
	"github.com/zen-systems/foodgate/pkg/chat"
	"github.com/zen-systems/foodgate/pkg/config"
	"github.com/zen-systems/foodgate/pkg/food"
	"github.com/zen-systems/foodgate/pkg/gen"
	"github.com/zen-systems/foodgate/pkg/intent"
	"github.com/zen-systems/foodgate/pkg/logging"
	"github.com/zen-systems/foodgate/pkg/router"
	"github.com/zen-systems/foodgate/pkg/search"
	"github.com/zen-systems/foodgate/pkg/server"
	"github.com/zen-systems/foodgate/pkg/vector"
)

var configFile string

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "foodgate",
		Short: "Vietnamese food assistant with cost-tier routing",
		Long: `Foodgate answers food questions for Vietnamese cities. Cheap queries
	are answered from templates, the rest are routed to an LLM tier with
	hybrid literal+vector search providing the grounding context.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(citiesCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles everything a command needs once the config is loaded.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	search *search.Service
	bridge *gen.Service
	orch   *chat.Orchestrator
	light  gen.Target
}

func buildApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, err
	}

	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}
	searchSvc := search.NewService(search.NewRegistry(cfg.DataDir), embedder, logger)

	bridge, err := gen.NewService(cfg.PoolSize, logger)
	if err != nil {
		return nil, err
	}

	light, err := buildTarget(cfg, cfg.Tiers.Light)
	if err != nil {
		return nil, fmt.Errorf("light tier: %w", err)
	}
	heavy, err := buildTarget(cfg, cfg.Tiers.Heavy)
	if err != nil {
		return nil, fmt.Errorf("heavy tier: %w", err)
	}

	orch := chat.NewOrchestrator(router.NewClassifier(), searchSvc, intent.NewResponder(), bridge,
		chat.Targets{Light: light, Heavy: heavy}, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		search: searchSvc,
		bridge: bridge,
		orch:   orch,
		light:  light,
	}, nil
}

func (a *app) close() {
	a.bridge.Close()
	_ = a.logger.Sync()
}

// buildEmbedder uses the Gemini embedding API when a key is configured and
// falls back to the deterministic mock for offline runs.
func buildEmbedder(cfg *config.Config, logger *zap.Logger) (vector.Embedder, error) {
	if cfg.GeminiAPIKey != "" {
		return vector.NewGeminiEmbedder(cfg.GeminiAPIKey, cfg.EmbedModel)
	}
	logger.Warn("no gemini API key, using the mock embedder")
	return &vector.MockEmbedder{}, nil
}

func buildTarget(cfg *config.Config, rt config.RouteTarget) (gen.Target, error) {
	a, err := adapter.New(rt.Adapter, cfg.APIKey(rt.Adapter))
	if err != nil {
		return gen.Target{}, err
	}
	return gen.Target{Adapter: a, Model: rt.Model}, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			a.search.Preload()

			srv := server.New(a.search, a.orch, a.bridge, a.light, a.logger)
			httpSrv := &http.Server{
				Addr:              a.cfg.Addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", zap.String("addr", a.cfg.Addr))
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}
}

func askCmd() *cobra.Command {
	var city, address string
	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask one question from the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			resp, err := a.orch.Ask(cmd.Context(), chat.Request{
				Message:     strings.Join(args, " "),
				City:        city,
				UserAddress: address,
			})
			if err != nil {
				return err
			}

			fmt.Println(resp.Reply)
			fmt.Printf("\n[model=%s type=%s places=%d]\n", resp.ModelUsed, resp.QueryType, len(resp.Results))
			return nil
		},
	}
	cmd.Flags().StringVar(&city, "city", "ha_noi", "city to answer for")
	cmd.Flags().StringVar(&address, "address", "", "user address for location-aware answers")
	return cmd
}

func searchCmd() *cobra.Command {
	var city, mode string
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a search against a city pack",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.close()

			query := strings.Join(args, " ")
			var items []food.Place
			switch mode {
			case "text":
				items, err = a.search.TextSearch(cmd.Context(), city, query, limit)
			case "semantic":
				items, err = a.search.SemanticSearch(cmd.Context(), city, query, limit)
			default:
				items, err = a.search.HybridSearch(cmd.Context(), city, query, limit)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tQUÁN\tMÓN\tĐỊA CHỈ\tGIÁ")
			for _, p := range items {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s, %s\t%s\n",
					p.ID, p.Shop, p.Dish, p.Address, p.District, food.FormatPrice(p.PriceMin, p.PriceMax))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&city, "city", "ha_noi", "city pack to search")
	cmd.Flags().StringVar(&mode, "mode", "hybrid", "hybrid | text | semantic")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	return cmd
}

func citiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cities",
		Short: "List cities with a data pack on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			for _, city := range search.NewRegistry(cfg.DataDir).AvailableCities() {
				fmt.Println(city)
			}
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and data packs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}

			ok := true
			for name, rt := range map[string]config.RouteTarget{
				"light": cfg.Tiers.Light,
				"heavy": cfg.Tiers.Heavy,
			} {
				if cfg.HasAdapter(rt.Adapter) {
					fmt.Printf("✓ tier %s: %s/%s\n", name, rt.Adapter, rt.Model)
				} else {
					fmt.Printf("✗ tier %s: %s/%s (no API key)\n", name, rt.Adapter, rt.Model)
					ok = false
				}
			}

			cities := search.NewRegistry(cfg.DataDir).AvailableCities()
			if len(cities) == 0 {
				fmt.Printf("✗ no city packs under %s\n", cfg.DataDir)
				ok = false
			} else {
				fmt.Printf("✓ %d city packs: %s\n", len(cities), strings.Join(cities, ", "))
			}

			if !ok {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
}
