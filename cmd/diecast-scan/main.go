package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ironsheep/diecast-scan/internal/capture"
	"github.com/ironsheep/diecast-scan/internal/collection"
	"github.com/ironsheep/diecast-scan/internal/config"
	"github.com/ironsheep/diecast-scan/internal/i18n"
	"github.com/ironsheep/diecast-scan/internal/imaging"
	"github.com/ironsheep/diecast-scan/internal/ocr"
	"github.com/ironsheep/diecast-scan/internal/scan"
	"github.com/ironsheep/diecast-scan/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
			fmt.Fprintln(os.Stderr, "This server communicates via MCP protocol over stdin/stdout.")
			fmt.Fprintln(os.Stderr, "Configure it in your MCP client (e.g., Claude Desktop).")
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load("diecast-scan", args)
	if err != nil {
		return err
	}

	if cfg.ShowVersion {
		fmt.Printf("diecast-scan %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return nil
	}

	// stdout is reserved for the MCP protocol
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Debug("starting diecast-scan", "version", Version, "built", BuildTime, "commit", GitCommit)

	store, err := collection.NewBoltStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}
	defer store.Close()

	localizer, err := i18n.New()
	if err != nil {
		return err
	}

	ocrOpts := ocr.DefaultOptions()
	ocrOpts.Language = cfg.OCRLanguage
	ocrOpts.TessdataPrefix = cfg.TessdataPrefix

	recOpts := []ocr.RecognizerOption{ocr.WithOptions(ocrOpts), ocr.WithLogger(logger)}
	if cfg.Preprocess {
		recOpts = append(recOpts, ocr.WithPreprocess(imaging.DefaultOptions()))
	}
	recognizer := ocr.NewRecognizer(nil, recOpts...)

	var camera capture.Camera = capture.NoCamera{}
	if cfg.CameraImage != "" {
		camera = capture.NewStillCameraFromFile(cfg.CameraImage)
		logger.Info("camera backed by still image", "path", cfg.CameraImage)
	}

	scanner := scan.NewScanner(scan.Config{
		Camera:          camera,
		AcquirerOptions: []capture.AcquirerOption{capture.WithMaxUploadBytes(cfg.MaxUploadBytes)},
		Recognizer:      recognizer,
		Finder:          store,
		Flow:            cfg.Flow,
		Logger:          logger,
	})
	defer scanner.Close()

	srv := server.New(server.Options{
		Scanner:   scanner,
		Store:     store,
		Localizer: localizer,
		OCR:       recognizer.Options(),
		Lang:      cfg.Lang,
		Version:   Version,
		Logger:    logger,
	})

	if info := ocr.GetInfo(recognizer.Options()); !info.Available {
		logger.Warn("tesseract unavailable, scans will fail", "error", info.Error)
	}

	logger.Info("server ready", "db", cfg.DBPath, "flow", cfg.Flow, "lang", cfg.Lang)
	if err := srv.Run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
