// Command seed loads languages and voices into the configured store. With
// -list-elevenlabs it prints the account's ElevenLabs voices as seed YAML
// instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/lingualoop/adapters"
	"github.com/satriahrh/lingualoop/adapters/tts"
	"github.com/satriahrh/lingualoop/internal/catalog"
	"github.com/satriahrh/lingualoop/internal/config"
)

func main() {
	file := flag.String("file", "seed.yaml", "seed file to load")
	listVoices := flag.Bool("list-elevenlabs", false, "print ElevenLabs voices as seed entries and exit")
	language := flag.String("language", "en", "language tag assigned to listed voices")
	flag.Parse()

	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *listVoices {
		if err := printElevenLabsVoices(ctx, *language, logger); err != nil {
			logger.Fatal("Failed to list voices", zap.Error(err))
		}
		return
	}

	seed, err := catalog.LoadFile(*file)
	if err != nil {
		logger.Fatal("Failed to load seed", zap.String("file", *file), zap.Error(err))
	}
	store, closeStore, err := adapters.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	result, err := catalog.Apply(ctx, store, seed, logger)
	if err != nil {
		logger.Error("Seeding stopped", zap.Error(err))
		closeStore()
		os.Exit(1)
	}
	logger.Info("Seed applied",
		zap.String("file", *file),
		zap.Int("languagesCreated", result.LanguagesCreated),
		zap.Int("voicesCreated", result.VoicesCreated),
		zap.Int("existing", result.Existing))
}

func printElevenLabsVoices(ctx context.Context, language string, logger *zap.Logger) error {
	client, err := tts.NewElevenLabsTTS(tts.NewElevenLabsConfigFromEnv(), logger)
	if err != nil {
		return err
	}
	listed, err := client.ListVoices(ctx)
	if err != nil {
		return err
	}

	voices := make([]catalog.VendorVoice, len(listed))
	for i, v := range listed {
		voices[i] = catalog.VendorVoice{ID: v.VoiceID, Name: v.Name, Labels: v.Labels}
	}
	return catalog.Write(os.Stdout, &catalog.Seed{Voices: catalog.VoicesFromVendor(voices, language)})
}
