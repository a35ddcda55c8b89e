package helpers

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/zinc-sig/pyjudge/cmd/config"
	"github.com/zinc-sig/pyjudge/internal/metadata"
	"github.com/zinc-sig/pyjudge/internal/upload"
)

// BuildUploadConfig builds upload configuration from all sources
func BuildUploadConfig(cfg *config.UploadConfig) (map[string]any, error) {
	result, err := metadata.Build(metadata.Sources{
		EnvPrefix: metadata.UploadEnv,
		File:      cfg.ConfigFile,
		JSON:      cfg.Config,
		Pairs:     cfg.ConfigKV,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build upload config: %w", err)
	}

	conf, err := metadata.Object(result)
	if err != nil {
		return nil, fmt.Errorf("upload config must be an object: %w", err)
	}
	if conf == nil {
		conf = make(map[string]any)
	}
	return conf, nil
}

// SetupArchiver creates and verifies the configured provider. It returns
// nil when no provider is selected.
func SetupArchiver(ctx context.Context, cfg *config.UploadConfig, log *zap.Logger) (*upload.Archiver, map[string]any, error) {
	if cfg.Provider == "" {
		return nil, nil, nil
	}

	conf, err := BuildUploadConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	provider, err := upload.New(cfg.Provider, conf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to configure upload provider: %w", err)
	}

	if v, ok := provider.(upload.Verifier); ok {
		if err := v.Verify(ctx); err != nil {
			return nil, nil, err
		}
	}

	return upload.NewArchiver(provider, cfg.Compress, log), conf, nil
}

// PrintUploadInfo prints upload configuration in verbose mode
func PrintUploadInfo(w io.Writer, provider string, conf map[string]any, compress bool) {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, "Upload Configuration")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Provider:       %s\n", provider)
	for _, key := range []string{"endpoint", "bucket", "prefix"} {
		if v, ok := conf[key]; ok && v != "" {
			fmt.Fprintf(w, "%-16s%v\n", key+":", v)
		}
	}
	fmt.Fprintf(w, "Compress:       %t\n", compress)
	fmt.Fprintln(w, "----------------------------------------")
}
