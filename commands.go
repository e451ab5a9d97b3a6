package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai_gallery_simulator/generator"
	"ai_gallery_simulator/preset"
	"ai_gallery_simulator/publisher"
	"ai_gallery_simulator/server"
	"ai_gallery_simulator/store"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// --- serve ---

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := store.Open(ctx, cfg.StoreURL, logger)
	if err != nil {
		return err
	}
	defer kv.Close()

	catalog, err := preset.NewCatalog(kv, logger)
	if err != nil {
		return err
	}
	agent, err := buildAgent(ctx)
	if err != nil {
		return err
	}
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv, err := server.New(agent, store.NewRepository(kv, logger), catalog, logger, server.Options{
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimit:      cfg.RateLimit.RPS,
		Burst:          cfg.RateLimit.Burst,
	})
	if err != nil {
		return err
	}

	listen := cfg.ServerAddr
	if serveAddr != "" {
		listen = serveAddr
	}
	httpSrv := &http.Server{
		Addr:              listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting web server", zap.String("addr", listen), zap.String("llm", cfg.LLM.Provider))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// --- generate ---

var gen struct {
	preset          string
	topic           string
	discussion      string
	worldview       string
	customWorldview string
	era             string
	toxicity        string
	model           string
	search          bool
	stream          bool
	asJSON          bool
	width           int
	timeout         time.Duration
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one gallery and print it",
	Example: `  gallery generate --topic 탈모 --toxicity SPICY
  gallery generate --preset preset-example-murim --stream`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, gen.timeout)
	defer cancel()

	kv, err := store.Open(ctx, cfg.StoreURL, logger)
	if err != nil {
		return err
	}
	defer kv.Close()

	settings, err := generateSettings(ctx, cmd, kv)
	if err != nil {
		return err
	}
	agent, err := buildAgent(ctx)
	if err != nil {
		return err
	}

	var onChunk func(string)
	if gen.stream {
		onChunk = func(text string) { fmt.Fprint(os.Stderr, text) }
	}
	g, err := agent.CreateGallery(ctx, settings, onChunk)
	if gen.stream {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	// 和网页版一样保留最近一次生成的画廊
	repo := store.NewRepository(kv, logger)
	if err := repo.SaveGallery(ctx, g); err != nil {
		logger.Warn("persist gallery failed", zap.Error(err))
	}
	if err := repo.SaveSettings(ctx, settings); err != nil {
		logger.Warn("persist settings failed", zap.Error(err))
	}

	if gen.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	}
	out, err := publisher.RenderTerminal(publisher.GalleryMarkdown(g), gen.width)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// generateSettings 以预设为底，命令行显式给出的参数覆盖预设。
func generateSettings(ctx context.Context, cmd *cobra.Command, kv store.KV) (generator.Settings, error) {
	var s generator.Settings
	if gen.preset != "" {
		catalog, err := preset.NewCatalog(kv, logger)
		if err != nil {
			return s, err
		}
		p, err := catalog.Get(ctx, gen.preset)
		if err != nil {
			return s, fmt.Errorf("preset %s: %w", gen.preset, err)
		}
		s = p.Settings
	}
	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("topic", &s.Topic, gen.topic)
	set("discussion", &s.DiscussionContext, gen.discussion)
	set("worldview", &s.Worldview, gen.worldview)
	set("custom-worldview", &s.CustomWorldview, gen.customWorldview)
	set("era", &s.Era, gen.era)
	set("toxicity", &s.Toxicity, gen.toxicity)
	set("model", &s.Model, gen.model)
	if flags.Changed("search") {
		s.Search = gen.search
	}
	if s.Model == "" {
		s.Model = cfg.LLM.Model
	}
	s = s.Normalized()
	return s, s.Validate()
}

// --- presets ---

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List built-in and saved presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		kv, err := store.Open(ctx, cfg.StoreURL, logger)
		if err != nil {
			return err
		}
		defer kv.Close()
		catalog, err := preset.NewCatalog(kv, logger)
		if err != nil {
			return err
		}
		list, err := catalog.List(ctx)
		if err != nil {
			return err
		}
		for _, p := range list {
			fmt.Printf("%-36s  %s\n    %s\n", p.ID, p.Name, publisher.Digest(p.Settings.DiscussionContext, 40))
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config server_addr)")

	f := generateCmd.Flags()
	f.StringVar(&gen.preset, "preset", "", "start from a preset id (list them with: gallery presets)")
	f.StringVar(&gen.topic, "topic", "", "gallery topic")
	f.StringVar(&gen.discussion, "discussion", "", "what the gallery is currently talking about")
	f.StringVar(&gen.worldview, "worldview", "", "NONE | MURIM | FANTASY | CUSTOM")
	f.StringVar(&gen.customWorldview, "custom-worldview", "", "worldview description when --worldview CUSTOM")
	f.StringVar(&gen.era, "era", "", "PREHISTORIC | ANCIENT | MEDIEVAL | EARLY_MODERN | CONTEMPORARY | NEAR_FUTURE | FAR_FUTURE")
	f.StringVar(&gen.toxicity, "toxicity", "", "MILD | MEDIUM | SPICY")
	f.StringVar(&gen.model, "model", "", "model name (defaults to config llm.model)")
	f.BoolVar(&gen.search, "search", false, "ground posts with web search")
	f.BoolVar(&gen.stream, "stream", false, "echo raw model output to stderr while generating")
	f.BoolVar(&gen.asJSON, "json", false, "print the gallery as JSON instead of rendered markdown")
	f.IntVar(&gen.width, "width", 100, "terminal word wrap width")
	f.DurationVar(&gen.timeout, "timeout", 5*time.Minute, "generation timeout")
}
