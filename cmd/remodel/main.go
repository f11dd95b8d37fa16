package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"remodel/internal/domain"
	"remodel/internal/imagegen"
	"remodel/internal/infra"
	"remodel/internal/providers/genai"
	"remodel/internal/providers/proxy"
	"remodel/internal/storage"
	"remodel/pkg/zip"
)

type options struct {
	styles      string
	concurrency int
	out         string
	proxyURL    string
	zipPath     string
	verbose     bool
	photos      []string
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	opts, err := parseFlags(os.Args[1:], cfg)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := infra.NewLogger(cfg.AppEnv, cfg.LogFile)
	if !opts.verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, opts, logger, os.Stdout))
}

func parseFlags(args []string, cfg *infra.Config) (options, error) {
	var opts options
	fs := flag.NewFlagSet("remodel", flag.ContinueOnError)
	fs.StringVar(&opts.styles, "styles", "", "comma separated styles (default: the whole catalogue)")
	fs.IntVar(&opts.concurrency, "concurrency", cfg.Concurrency, "styles generated in parallel")
	fs.StringVar(&opts.out, "out", "remodel-out", "directory for generated images")
	fs.StringVar(&opts.proxyURL, "proxy", "", "base URL of a remodel API server; calls go through its /api/generate")
	fs.StringVar(&opts.zipPath, "zip", "", "also write every generated image into this zip file")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: remodel [flags] photo [photo...]\n\nStyles: %s\n\n", strings.Join(styleNames(), ", "))
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	opts.photos = fs.Args()
	if len(opts.photos) == 0 {
		fs.Usage()
		return options{}, errors.New("at least one photo is required")
	}
	if opts.concurrency < 1 {
		return options{}, fmt.Errorf("-concurrency must be at least 1, got %d", opts.concurrency)
	}
	return opts, nil
}

func run(ctx context.Context, cfg *infra.Config, opts options, logger zerolog.Logger, stdout io.Writer) int {
	report := newReporter(stdout)

	styles, err := domain.ParseStyles(splitList(opts.styles))
	if err != nil {
		report.fatal(err)
		return 2
	}
	images, err := loadPhotos(opts.photos)
	if err != nil {
		report.fatal(err)
		return 2
	}
	gen, err := newGenerator(ctx, cfg, opts, logger)
	if err != nil {
		report.fatal(err)
		return 2
	}
	store, err := storage.NewFileStore(opts.out)
	if err != nil {
		report.fatal(err)
		return 2
	}

	pipeline := imagegen.NewPipeline(gen, imagegen.RetrierOptions{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
	}, logger)
	scheduler := imagegen.NewScheduler(pipeline, opts.concurrency, logger)

	report.header(images.Len(), styles, scheduler.Limit())
	start := time.Now()

	var assets []zip.Asset
	failed := 0
	for res := range scheduler.Stream(ctx, images, styles) {
		if res.Outcome.Status != domain.StatusDone {
			failed++
			report.failed(res.Style, res.Outcome.Reason)
			continue
		}
		img := *res.Outcome.Image
		key, err := store.SaveResult(ctx, "", res.Style, img)
		if err != nil {
			failed++
			report.failed(res.Style, err.Error())
			continue
		}
		report.done(res.Style, store.Path(key))
		assets = append(assets, zip.Asset{
			Filename: storage.ResultFilename(res.Style, img.MediaType),
			MIME:     img.MediaType,
			Data:     img.Data,
		})
	}

	if opts.zipPath != "" && len(assets) > 0 {
		if err := writeArchive(opts.zipPath, assets); err != nil {
			report.fatal(err)
			return 1
		}
		report.archive(opts.zipPath, len(assets))
	}

	report.summary(len(styles)-failed, failed, time.Since(start))
	if failed == len(styles) {
		return 1
	}
	return 0
}

func newGenerator(ctx context.Context, cfg *infra.Config, opts options, logger zerolog.Logger) (imagegen.Generator, error) {
	if opts.proxyURL != "" {
		return proxy.NewClient(proxy.Options{BaseURL: opts.proxyURL, Logger: &logger})
	}
	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required unless -proxy is set")
	}
	return genai.NewClient(ctx, genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  &logger,
	})
}

func loadPhotos(paths []string) (imagegen.ImageSet, error) {
	images := make([]domain.Image, 0, len(paths))
	for _, path := range paths {
		mediaType, ok := storage.MediaTypeFor(path)
		if !ok {
			return imagegen.ImageSet{}, fmt.Errorf("%s: unsupported image type", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return imagegen.ImageSet{}, fmt.Errorf("read photo: %w", err)
		}
		images = append(images, domain.Image{MediaType: mediaType, Data: data})
	}
	return imagegen.NewImageSetFromImages(images)
}

func writeArchive(path string, assets []zip.Asset) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	if err := zip.Write(f, assets, time.Now()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func styleNames() []string {
	catalogue := domain.Catalogue()
	names := make([]string, len(catalogue))
	for i, s := range catalogue {
		names[i] = s.String()
	}
	return names
}
