package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/crewfinder/internal/config"
	"github.com/example/crewfinder/pkg/clients/geocodeclient"
	"github.com/example/crewfinder/pkg/clients/gmailclient"
	"github.com/example/crewfinder/pkg/clients/locationclient"
	"github.com/example/crewfinder/pkg/core/model"
	"github.com/example/crewfinder/pkg/core/search"
	"github.com/example/crewfinder/pkg/db"
	"github.com/example/crewfinder/pkg/postgres"
	"github.com/example/crewfinder/pkg/utils"
	"github.com/example/crewfinder/pkg/utils/logging"
)

// App holds the application dependencies
type App struct {
	cfg         *config.Config
	oauthCfg    *config.OAuthClientConfig
	gmailClient *gmailclient.Client
	database    *postgres.DB
	pipeline    *search.Pipeline
	locator     *locationclient.Client
	logger      *zap.Logger
	ctx         context.Context
}

var (
	env string
	app *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "crewfinder",
		Short: "Crewfinder CLI - Find and allocate trade crews",
		Long:  `A CLI tool for searching the resource directory, curating a crew selection, and committing allocations with invitations.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "clearToken" {
				return nil
			}
			return initApp(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.database != nil {
					app.database.Close()
				}
				if app.logger != nil {
					app.logger.Sync()
				}
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(listResourcesCmd())
	rootCmd.AddCommand(setPreferenceCmd())
	rootCmd.AddCommand(clearPreferenceCmd())
	rootCmd.AddCommand(clearTokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, clients, and database. The gmail client
// is only initialized for commands that dispatch invitations, so read-only
// commands never trigger the OAuth flow
func initApp(cmd *cobra.Command) error {
	var err error
	app = &App{
		ctx: context.Background(),
	}

	// Initialize logger
	app.logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.logger.Info("Loading configuration")
	app.cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger.Debug("Configuration loaded successfully")

	// Connect to the database
	app.logger.Info("Connecting to database")
	app.database, err = postgres.NewDB(app.ctx, app.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := app.database.RunMigrations(app.ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	app.logger.Debug("Database initialized successfully")

	// Build the geocoding pipeline
	geocodeOpts := []geocodeclient.Option{}
	if app.cfg.Geocode.BaseURL != "" {
		geocodeOpts = append(geocodeOpts, geocodeclient.WithBaseURL(app.cfg.Geocode.BaseURL))
	}
	if app.cfg.Geocode.RequestIntervalMS > 0 {
		geocodeOpts = append(geocodeOpts, geocodeclient.WithRequestInterval(app.cfg.Geocode.RequestInterval()))
	}
	geocoder := geocodeclient.NewClient(geocodeOpts...)
	app.pipeline = search.NewPipeline(geocoder, app.logger, app.cfg.Geocode.Concurrency)

	// Location fallback chain for searches without an explicit center
	fallback := model.Coordinate{Lat: app.cfg.Location.DefaultLat, Lon: app.cfg.Location.DefaultLon}
	app.locator = locationclient.NewClient(app.cfg.Location.LookupURL, fallback, app.logger)

	if cmd.Name() != "search" {
		return nil
	}

	// Load OAuth client configuration
	app.logger.Info("Loading OAuth client configuration")
	app.oauthCfg, err = config.LoadOAuthClientWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	// Initialize gmail client for invitation dispatch
	app.logger.Info("Initializing gmail client")
	app.gmailClient, err = gmailclient.NewClient(app.ctx, app.oauthCfg, app.cfg.GmailSender)
	if err != nil {
		return fmt.Errorf("failed to create gmail client: %w", err)
	}
	app.logger.Debug("Gmail client initialized successfully")

	return nil
}

// Command definitions

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <category> <start> <end>",
		Short: "Search for available resources and curate a selection",
		Long: `Search the resource directory for one trade category and date range,
then curate the results interactively: select candidates, order them,
set preferred sub-windows, and commit the selection as allocations.

Dates use the YYYY-MM-DD format.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := parseWindow(args[1], args[2])
			if err != nil {
				return err
			}

			radius, _ := cmd.Flags().GetFloat64("radius")
			lat, _ := cmd.Flags().GetFloat64("lat")
			lon, _ := cmd.Flags().GetFloat64("lon")
			minPersons, _ := cmd.Flags().GetInt("min-persons")
			maxRate, _ := cmd.Flags().GetFloat64("max-rate")
			query, _ := cmd.Flags().GetString("query")

			center := model.Coordinate{Lat: lat, Lon: lon}
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
				var source locationclient.Source
				center, source = app.locator.CurrentLocation(app.ctx)
				fmt.Printf("Search center %.4f, %.4f (%s)\n", center.Lat, center.Lon, source)
			}

			criteria := model.SearchCriteria{
				Category:      args[0],
				Window:        window,
				Center:        center,
				RadiusKm:      radius,
				MinPersons:    minPersons,
				MaxHourlyRate: maxRate,
				Query:         query,
			}

			return runCurationSession(app, criteria)
		},
	}

	cmd.Flags().Float64("radius", 50, "Search radius in kilometres")
	cmd.Flags().Float64("lat", 0, "Search center latitude (defaults to the detected location)")
	cmd.Flags().Float64("lon", 0, "Search center longitude (defaults to the detected location)")
	cmd.Flags().Int("min-persons", 0, "Minimum crew size")
	cmd.Flags().Float64("max-rate", 0, "Maximum hourly rate (0 = no limit)")
	cmd.Flags().String("query", "", "Free-text filter over name, company, bio and languages")

	return cmd
}

func listResourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listResources [category]",
		Short: "List resources from the directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var category string
			if len(args) > 0 {
				category = args[0]
			}

			records, err := app.database.ListResources(app.ctx, category, "")
			if err != nil {
				return fmt.Errorf("failed to list resources: %w", err)
			}

			app.logger.Info("Resources fetched successfully", zap.Int("count", len(records)))

			fmt.Printf("\nFound %d resources:\n\n", len(records))
			for _, rec := range records {
				r := rec.ToModel()
				rate := ""
				if r.HourlyRate != nil {
					rate = fmt.Sprintf(" - %.2f/h", *r.HourlyRate)
				}
				fmt.Printf("- %s (%s) [%s] %s - %d person(s), %s to %s%s\n",
					r.Name,
					r.ID,
					r.Category,
					r.Status,
					r.PersonCount,
					r.Availability.Start.Format("2006-01-02"),
					r.Availability.End.Format("2006-01-02"),
					rate,
				)
			}

			return nil
		},
	}
}

func setPreferenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setPreference <resource_id> <start> <end> [notes]",
		Short: "Store a preferred window for a resource",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := parseWindow(args[1], args[2])
			if err != nil {
				return err
			}
			notes := ""
			if len(args) > 3 {
				notes = args[3]
			}

			pref := db.PreferredWindow{
				ResourceID: args[0],
				StartDate:  window.Start,
				EndDate:    window.End,
				Notes:      notes,
			}
			if err := app.database.UpsertPreferredWindow(app.ctx, pref); err != nil {
				return fmt.Errorf("failed to store preferred window: %w", err)
			}

			fmt.Printf("Stored preferred window %s to %s for %s\n", args[1], args[2], args[0])
			return nil
		},
	}
}

func clearPreferenceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clearPreference <resource_id>",
		Short: "Remove the stored preferred window for a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.database.DeletePreferredWindow(app.ctx, args[0]); err != nil {
				return fmt.Errorf("failed to clear preferred window: %w", err)
			}
			fmt.Printf("Cleared preferred window for %s\n", args[0])
			return nil
		},
	}
}

func clearTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clearToken",
		Short: "Remove the cached OAuth token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			utils.ClearToken()
			return nil
		},
	}
}

func parseWindow(start, end string) (model.Window, error) {
	startDate, err := time.Parse("2006-01-02", start)
	if err != nil {
		return model.Window{}, fmt.Errorf("start date must use YYYY-MM-DD: %w", err)
	}
	endDate, err := time.Parse("2006-01-02", end)
	if err != nil {
		return model.Window{}, fmt.Errorf("end date must use YYYY-MM-DD: %w", err)
	}
	if endDate.Before(startDate) {
		return model.Window{}, fmt.Errorf("end date is before start date")
	}
	return model.Window{Start: startDate.UTC(), End: endDate.UTC()}, nil
}

func parseIndex(arg string, limit int) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > limit {
		return 0, fmt.Errorf("expected a number between 1 and %d", limit)
	}
	return n - 1, nil
}
