// Package config loads runtime settings from flags and DIECAST_SCAN_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/ironsheep/diecast-scan/internal/scan"
)

// EnvPrefix is prepended to flag names to form environment variable names,
// so --tessdata is also read from DIECAST_SCAN_TESSDATA.
const EnvPrefix = "DIECAST_SCAN"

// Config holds the parsed settings.
type Config struct {
	DBPath         string
	Lang           string
	OCRLanguage    string
	TessdataPrefix string
	// CameraImage backs the camera with a still image. Empty means no camera.
	CameraImage    string
	Flow           scan.Flow
	Preprocess     bool
	MaxUploadBytes int64
	LogLevel       slog.Level
	ShowVersion    bool
}

// ErrHelp is wrapped by the error Load returns for -h and --help. Every
// parse error carries the usage text.
var ErrHelp = ff.ErrHelp

// Load parses args (without the program name) and the environment.
func Load(name string, args []string) (Config, error) {
	fs := ff.NewFlagSet(name)
	var (
		dbPath       = fs.StringLong("db", "diecast-scan.db", "collection database file")
		lang         = fs.StringLong("lang", "en", "message language (en, pt, or an Accept-Language list)")
		ocrLang      = fs.StringLong("ocr-lang", "eng", "tesseract language")
		tessdata     = fs.StringLong("tessdata", "", "tessdata directory (default: tesseract's own)")
		cameraImage  = fs.StringLong("camera-image", "", "serve this image file as the camera")
		flow         = fs.StringLong("flow", string(scan.FlowStructured), "code extraction flow: structured or legacy")
		noPreprocess = fs.BoolLong("no-preprocess", "send images to OCR without grayscale/contrast cleanup")
		maxUploadMB  = fs.IntLong("max-upload-mb", 25, "largest accepted image upload in MiB (0 = unlimited)")
		logLevel     = fs.StringLong("log-level", "info", "log level: debug, info, warn, error")
		showVersion  = fs.BoolLong("version", "print version information and exit")
	)

	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(EnvPrefix)); err != nil {
		return Config{}, fmt.Errorf("%w\n%s", err, ffhelp.Flags(fs))
	}

	cfg := Config{
		DBPath:         strings.TrimSpace(*dbPath),
		Lang:           strings.TrimSpace(*lang),
		OCRLanguage:    strings.TrimSpace(*ocrLang),
		TessdataPrefix: strings.TrimSpace(*tessdata),
		CameraImage:    strings.TrimSpace(*cameraImage),
		Preprocess:     !*noPreprocess,
		ShowVersion:    *showVersion,
	}
	if cfg.ShowVersion {
		return cfg, nil
	}

	var err error
	if cfg.Flow, err = scan.ParseFlow(strings.TrimSpace(*flow)); err != nil {
		return Config{}, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(*logLevel))); err != nil {
		return Config{}, fmt.Errorf("invalid log level %q", *logLevel)
	}
	if *maxUploadMB < 0 {
		return Config{}, fmt.Errorf("max-upload-mb must not be negative, got %d", *maxUploadMB)
	}
	cfg.MaxUploadBytes = int64(*maxUploadMB) << 20

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that do not depend on flag parsing.
func (c Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if c.OCRLanguage == "" {
		errs = append(errs, errors.New("ocr language is required"))
	}
	if c.MaxUploadBytes < 0 {
		errs = append(errs, errors.New("max upload size must not be negative"))
	}
	return errors.Join(errs...)
}
