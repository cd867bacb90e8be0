package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/xplshn/tracerr2"
	"gopkg.in/yaml.v3"
)

const (
	defaultAddr       = "0.0.0.0:1234"
	defaultConfigPath = "reqcap.yml"
	defaultTheme      = "monokai"
)

// FileConfig mirrors reqcap.yml. It also carries explicitly set flags; nil means unset.
type FileConfig struct {
	Addr           *string `yaml:"addr"`
	Root           *string `yaml:"root"`
	CaptureFile    *string `yaml:"capture_file"`
	DumpRequest    *bool   `yaml:"dump_request"`
	RenderMarkdown *bool   `yaml:"render_markdown"`
	Theme          *string `yaml:"theme"`
}

type Config struct {
	Addr           string
	Root           string
	CaptureFile    string
	DumpRequest    bool
	RenderMarkdown bool
	Theme          string
}

var envPlaceholder = regexp.MustCompile(`\{\{\s*env\.(\w+)\s*\}\}`)

// expandEnv substitutes {{ env.NAME }} placeholders. Every unset or empty variable is
// reported, not just the first.
func expandEnv(data []byte) ([]byte, error) {
	var missing []string
	out := envPlaceholder.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(envPlaceholder.FindSubmatch(match)[1])
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return []byte(v)
		}
		if !slices.Contains(missing, name) {
			missing = append(missing, name)
		}
		return nil
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("environment variables not set or empty: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// loadFileConfig reads path. A missing file is only an error when required is set.
func loadFileConfig(path string, required bool, logger *slog.Logger) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			logger.Debug("no configuration file, using defaults", "path", path)
			return &FileConfig{}, nil
		}
		return nil, tracerr.Wrapf(err, "error reading config file %s", path)
	}
	logger.Info("loading configuration file", "path", path)

	processed, err := expandEnv(data)
	if err != nil {
		return nil, tracerr.Wrapf(err, "error processing env vars in config")
	}

	var fc FileConfig
	if err := yaml.Unmarshal(processed, &fc); err != nil {
		return nil, tracerr.Wrapf(err, "error parsing YAML file")
	}
	return &fc, nil
}

// resolveConfig applies flag > file > default precedence and pins the root to an
// absolute path. The working directory is only consulted when no root was given.
func resolveConfig(flags, file FileConfig) (*Config, error) {
	resolveStr := func(flagVal, fileVal *string, defaultVal string) string {
		if flagVal != nil {
			return *flagVal
		}
		if fileVal != nil {
			return *fileVal
		}
		return defaultVal
	}
	resolveBool := func(flagVal, fileVal *bool, defaultVal bool) bool {
		if flagVal != nil {
			return *flagVal
		}
		if fileVal != nil {
			return *fileVal
		}
		return defaultVal
	}

	cfg := Config{
		Addr:           resolveStr(flags.Addr, file.Addr, defaultAddr),
		Root:           resolveStr(flags.Root, file.Root, ""),
		CaptureFile:    resolveStr(flags.CaptureFile, file.CaptureFile, ""),
		DumpRequest:    resolveBool(flags.DumpRequest, file.DumpRequest, false),
		RenderMarkdown: resolveBool(flags.RenderMarkdown, file.RenderMarkdown, false),
		Theme:          resolveStr(flags.Theme, file.Theme, defaultTheme),
	}

	if cfg.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, tracerr.Wrapf(err, "failed to get working directory")
		}
		cfg.Root = wd
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, tracerr.Wrapf(err, "failed to resolve root %s", cfg.Root)
	}
	cfg.Root = root

	return &cfg, nil
}
