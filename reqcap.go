package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/xplshn/tracerr2"
)

func main() {
	app := &cli.Command{
		Name:  "reqcap",
		Usage: "Serve files from a directory and log the raw contents of POST requests",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: defaultConfigPath, Usage: "Path to config file"},
			&cli.StringFlag{Name: "addr", Value: defaultAddr, Usage: "Address to listen on"},
			&cli.StringFlag{Name: "root", Usage: "Directory to serve files from (default: working directory)"},
			&cli.StringFlag{Name: "capture-file", Usage: "Append captured requests to this file"},
			&cli.BoolFlag{Name: "dump-request", Usage: "Also log the reconstructed request line and headers"},
			&cli.BoolFlag{Name: "render-markdown", Usage: "Render .md files as HTML when requested with ?render=1"},
			&cli.StringFlag{Name: "theme", Value: defaultTheme, Usage: "Highlighting theme for reconstructed requests"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := slog.LevelInfo
			if cmd.Bool("debug") {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			fileCfg, err := loadFileConfig(cmd.String("config"), cmd.IsSet("config"), logger)
			if err != nil {
				return err
			}
			cfg, err := resolveConfig(flagConfig(cmd), *fileCfg)
			if err != nil {
				return err
			}
			return run(ctx, cfg, logger)
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if e, ok := err.(*tracerr.Error); ok {
			e.Print()
		} else {
			slog.Error("application failed to run", "error", err)
		}
		os.Exit(1)
	}
}

// flagConfig keeps only the flags given on the command line so the config file can
// fill in the rest.
func flagConfig(cmd *cli.Command) FileConfig {
	var fc FileConfig
	str := func(name string) *string {
		if !cmd.IsSet(name) {
			return nil
		}
		v := cmd.String(name)
		return &v
	}
	boolean := func(name string) *bool {
		if !cmd.IsSet(name) {
			return nil
		}
		v := cmd.Bool(name)
		return &v
	}
	fc.Addr = str("addr")
	fc.Root = str("root")
	fc.CaptureFile = str("capture-file")
	fc.Theme = str("theme")
	fc.DumpRequest = boolean("dump-request")
	fc.RenderMarkdown = boolean("render-markdown")
	return fc
}

func run(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	sink, err := newCaptureSink(os.Stdout, cfg)
	if err != nil {
		return err
	}
	defer sink.Close()

	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", cfg.Addr)
	if err != nil {
		return tracerr.Wrapf(err, "failed to listen on %s", cfg.Addr)
	}
	logger.Info("listening", "addr", lis.Addr().String(), "root", cfg.Root)

	srv := &http.Server{Handler: newHandler(cfg, sink, logger)}
	if err := srv.Serve(lis); err != nil {
		return tracerr.Wrapf(err, "server stopped")
	}
	return nil
}
