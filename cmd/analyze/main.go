// Command analyze runs one report analysis over local files and prints the JSON result.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"rmn-analyst/internal/bootstrap"
	"rmn-analyst/internal/cache"
	"rmn-analyst/internal/extract"
	"rmn-analyst/internal/llm"
	"rmn-analyst/internal/report"
	"rmn-analyst/internal/shared/config"
	"rmn-analyst/internal/shared/telemetry"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		provider string
		model    string
		outPath  string
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Analyze retail media reports",
		Long: `Analyze extracts text from PDF, CSV, DOCX or text reports, runs the
grounded analysis once and prints the result as JSON.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !verbose {
				telemetry.SetOutput(io.Discard)
			}
			cfg := config.Load()
			if provider != "" {
				cfg.LLMProvider = provider
			}
			if model != "" {
				if cfg.LLMProvider == "openai" {
					cfg.OpenAIModel = model
				} else {
					cfg.GeminiModel = model
				}
			}
			// A CLI run has no use for a client that only fails later.
			cfg.Env = "production"

			ctx := cmd.Context()
			client, err := bootstrap.NewLLMClient(ctx, cfg)
			if err != nil {
				return err
			}
			contents, err := readReports(ctx, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}
			return run(ctx, client, contents, out)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider (gemini, openai); defaults to LLM_PROVIDER")
	cmd.Flags().StringVar(&model, "model", "", "Model name; defaults to the provider's configured model")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write JSON to this file instead of stdout")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print structured logs to stdout")
	return cmd
}

// readReports extracts text from each file in argument order.
func readReports(ctx context.Context, paths []string) ([]string, error) {
	contents := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		text, err := extract.Text(ctx, data, "", filepath.Base(p))
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", p, err)
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("extract %s: no text found", p)
		}
		contents = append(contents, text)
	}
	return contents, nil
}

func run(ctx context.Context, client llm.Client, contents []string, w io.Writer) error {
	svc := report.NewService(client, cache.NewMemoryStore(nil), 0)
	res, err := svc.Analyze(ctx, contents)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	var groundErr *report.GroundingError
	if errors.As(err, &groundErr) {
		if encErr := enc.Encode(map[string]any{
			"error":        groundErr.Message,
			"documentType": groundErr.DocumentType,
			"allowed":      groundErr.Allowed,
			"cacheId":      groundErr.CacheID,
		}); encErr != nil {
			return encErr
		}
		return fmt.Errorf("analysis rejected: %s", groundErr.Message)
	}
	if err != nil {
		return err
	}
	return enc.Encode(res)
}
