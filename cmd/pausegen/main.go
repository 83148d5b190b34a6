// Command pausegen writes the silence clips inserted between phrases, one per
// supported pause length, under AUDIO_BASE_DIR/pause.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/internal/audio"
	"github.com/satriahrh/lingualoop/internal/config"
)

func main() {
	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	baseDir := flag.String("dir", cfg.AudioBaseDir, "audio base directory")
	flag.Parse()

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	written, err := audio.GeneratePauses(*baseDir)
	if err != nil {
		logger.Fatal("Failed to write pause clips", zap.String("dir", *baseDir), zap.Error(err))
	}
	for _, path := range written {
		logger.Info("Pause clip written", zap.String("path", path))
	}
}
