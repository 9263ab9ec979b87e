package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tralbum/bandcamp-dl/internal/config"
	"github.com/tralbum/bandcamp-dl/internal/download"
	"github.com/tralbum/bandcamp-dl/internal/logger"
	"github.com/tralbum/bandcamp-dl/internal/tui"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to the configuration file")
	pflag.Parse()

	settings, err := config.Load(*configPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Log lines on stderr would tear the alternate screen.
	logger.SetLogger(zap.NewNop().Sugar())

	if err := tui.Run(download.NewService(), settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
