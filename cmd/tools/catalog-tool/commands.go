package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"magick-workers/internal/analyzer"
	"magick-workers/internal/app"
	"magick-workers/internal/cards"
	"magick-workers/internal/catalog"
	"magick-workers/internal/common/config"
	"magick-workers/internal/common/database"
	"magick-workers/internal/models"
	"magick-workers/internal/recommend"
)

func importCmd() *cobra.Command {
	var target string
	var invalidate bool

	cmd := &cobra.Command{
		Use:   "import <catalog.json>",
		Short: "Load a catalog file into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			businesses, err := catalog.ParseJSON(data)
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if target == "" {
				target = cfg.Catalog.Source
			}

			ctx := cmd.Context()
			log := newLogger()
			var n int

			switch strings.ToLower(target) {
			case config.CatalogSourcePostgres:
				pg, err := database.NewPostgres(cfg.Database.Postgres)
				if err != nil {
					return err
				}
				defer pg.Close()
				store := catalog.NewPostgresStore(pg.DB, log)
				if err := store.EnsureSchema(ctx); err != nil {
					return err
				}
				if n, err = store.Upsert(ctx, businesses); err != nil {
					return err
				}
			case config.CatalogSourceElasticsearch:
				es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
				if err != nil {
					return err
				}
				index := catalog.NewSearchIndex(es.Client, cfg.Database.Elasticsearch.Index, cfg.Catalog.MaxDocuments, log)
				if err := index.EnsureIndex(ctx); err != nil {
					return err
				}
				if n, err = index.Index(ctx, businesses); err != nil {
					return err
				}
			case config.CatalogSourceFirestore:
				fs, err := database.NewFirestore(ctx, cfg.Firestore)
				if err != nil {
					return err
				}
				defer fs.Close()
				if err := catalog.NewFirestoreLoader(fs.Client, cfg.Firestore.Collection, cfg.Catalog.MaxDocuments, log).Put(ctx, businesses); err != nil {
					return err
				}
				n = len(businesses)
			default:
				return fmt.Errorf("cannot import into %q; use postgres, elasticsearch or firestore", target)
			}

			if invalidate && cfg.Database.Redis.Address != "" {
				rdb, err := database.NewRedis(cfg.Database.Redis)
				if err != nil {
					return err
				}
				defer rdb.Close()
				if err := rdb.Client.Del(ctx, cfg.Catalog.CacheKey).Err(); err != nil {
					return fmt.Errorf("invalidate catalog cache: %w", err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d businesses into %s\n", n, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "postgres, elasticsearch or firestore (default: catalog.source)")
	cmd.Flags().BoolVar(&invalidate, "invalidate-cache", true, "drop the redis catalog snapshot after importing")
	return cmd
}

func cardFlags(cmd *cobra.Command, card *models.Card) {
	cmd.Flags().StringVar(&card.Text, "text", "", "card text")
	cmd.Flags().StringVar(&card.Category, "category", "", "card category")
	cmd.Flags().StringVar((*string)(&card.Type), "type", "", "Question or Mission")
}

func classifyCmd() *cobra.Command {
	var card models.Card
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Show the metadata and profile of a card",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if card.IsZero() {
				return fmt.Errorf("--text or --category is required")
			}
			classifier := cards.Default()
			meta := classifier.Classify(card)
			return writeJSON(cmd.OutOrStdout(), map[string]interface{}{
				"cardId":              cards.Key(card.Category, card.Text),
				"curated":             classifier.Curated(card),
				"needsRecommendation": cards.RequiresVisit(meta),
				"metadata":            meta,
				"profile":             analyzer.New().Analyze(card),
			})
		},
	}
	cardFlags(cmd, &card)
	return cmd
}

func recommendCmd() *cobra.Command {
	var (
		card        models.Card
		city        string
		lat, lng    float64
		mode        string
		catalogFile string
	)
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank businesses for a card against the configured catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, closeFn, err := buildEngine(cmd, catalogFile)
			if err != nil {
				return err
			}
			defer closeFn()

			req := recommend.Request{Card: card, UserCity: city}
			if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
				req.UserCoord = &models.GeoCoordinate{Lat: lat, Lng: lng}
			}
			if mode != "" {
				if req.Mode, err = recommend.ParseMode(strings.ToLower(mode)); err != nil {
					return err
				}
			}

			ranked, err := engine.Rank(cmd.Context(), req)
			if err != nil {
				return err
			}
			if len(ranked) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no recommendations for this card")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSOURCE\tSCORE\tDISTANCE_KM")
			for _, r := range ranked {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%s\n", r.Business.ID, r.Business.Name, r.Business.Source, r.Score, formatDistance(r.DistanceKm))
			}
			return tw.Flush()
		},
	}
	cardFlags(cmd, &card)
	cmd.Flags().StringVar(&city, "city", "", "user city")
	cmd.Flags().Float64Var(&lat, "lat", 0, "user latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "user longitude")
	cmd.Flags().StringVar(&mode, "mode", "", "affiliate or sponsor (default: engine default)")
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "rank against this catalog file instead of the configured source")
	return cmd
}

// buildEngine ranks against a local catalog file when one is given, and
// otherwise assembles the configured stack.
func buildEngine(cmd *cobra.Command, catalogFile string) (*recommend.Engine, func(), error) {
	if catalogFile != "" {
		engine := recommend.NewEngine(catalog.NewStaticLoader(catalogFile), recommend.DefaultConfig(), newLogger())
		return engine, func() {}, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	a, err := app.New(cmd.Context(), app.Options{Config: cfg, Logger: newLogger(), ConnectAttempts: 1})
	if err != nil {
		return nil, nil, err
	}
	return a.Engine, func() { _ = a.Close() }, nil
}

func formatDistance(km *float64) string {
	if km == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *km)
}

func nearbyCmd() *cobra.Command {
	var (
		lat, lng float64
		radiusKm float64
		size     int
	)
	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List indexed businesses around a point, closest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
				return fmt.Errorf("coordinate %g,%g is out of range", lat, lng)
			}
			if radiusKm <= 0 {
				return fmt.Errorf("--radius must be positive")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			index := catalog.NewSearchIndex(es.Client, cfg.Database.Elasticsearch.Index, cfg.Catalog.MaxDocuments, newLogger())

			businesses, distances, err := index.Nearby(cmd.Context(), models.GeoCoordinate{Lat: lat, Lng: lng}, radiusKm, size)
			if err != nil {
				return err
			}
			if len(businesses) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no businesses within %g km\n", radiusKm)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCITY\tSOURCE\tDISTANCE_KM")
			for i, b := range businesses {
				var km *float64
				if i < len(distances) {
					km = &distances[i]
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.Name, b.City, b.Source, formatDistance(km))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude")
	cmd.Flags().Float64Var(&radiusKm, "radius", models.DefaultRadiusKm, "search radius in km")
	cmd.Flags().IntVar(&size, "size", 10, "maximum results")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

func cardsCmd() *cobra.Command {
	var outboundOnly bool
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "List the curated cards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			classifier := cards.Default()
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tRECOMMENDATION\tCATEGORIES\tTEXT")
			for _, card := range classifier.Cards() {
				meta := classifier.Classify(card)
				if outboundOnly && !cards.RequiresVisit(meta) {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", card.Type, meta.RecommendationType, strings.Join(meta.BusinessCategories, ","), card.Text)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&outboundOnly, "outbound", false, "only cards that lead to a recommendation")
	return cmd
}

func programsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "programs",
		Short: "List the affiliate programs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeJSON(cmd.OutOrStdout(), catalog.NewAffiliates(nil).ProgramStats())
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
