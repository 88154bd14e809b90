package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formwizard/pkg/metadata"
	adapter "github.com/goliatone/go-formwizard/pkg/openapi"
	"github.com/goliatone/go-formwizard/pkg/record"
	"github.com/goliatone/go-formwizard/pkg/session"
)

type runFlags struct {
	metadataPath string
	openapiPath  string
	operationID  string
	recordURL    string
	navPairs     map[string]string
	debounce     time.Duration
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "formwizard",
		Short:         "Run declarative multi-step form wizards in the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Walk a wizard defined by a metadata document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWizard(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVarP(&flags.metadataPath, "metadata", "m", "", "metadata document (JSON or YAML)")
	cmd.Flags().StringVar(&flags.openapiPath, "openapi", "", "OpenAPI document to derive metadata from")
	cmd.Flags().StringVar(&flags.operationID, "operation", "", "operation id when deriving from OpenAPI")
	cmd.Flags().StringVar(&flags.recordURL, "record", "", "record endpoint seeding initial state")
	cmd.Flags().StringToStringVar(&flags.navPairs, "nav", nil, "navigation context for record URL tokens (key=value)")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", 0, "validation debounce interval")
	return cmd
}

func loadItems(ctx context.Context, flags *runFlags) ([]metadata.Item, error) {
	switch {
	case flags.metadataPath != "":
		raw, err := os.ReadFile(flags.metadataPath)
		if err != nil {
			return nil, fmt.Errorf("read metadata: %w", err)
		}
		return metadata.Decode(raw)
	case flags.openapiPath != "":
		raw, err := os.ReadFile(flags.openapiPath)
		if err != nil {
			return nil, fmt.Errorf("read openapi document: %w", err)
		}
		return adapter.New().Items(ctx, raw, flags.operationID)
	default:
		return nil, errors.New("either --metadata or --openapi is required")
	}
}

func buildSession(ctx context.Context, flags *runFlags, items []metadata.Item) (*session.Session, error) {
	opts := []session.Option{
		session.WithListener(session.ListenerFuncs{
			OnStepCompleted: func(index int) {
				fmt.Printf("✔ step %d complete\n", index+1)
			},
		}),
	}
	if flags.recordURL != "" {
		opts = append(opts, session.WithRecord(record.New(), flags.recordURL, flags.navPairs))
	}
	if flags.debounce > 0 {
		opts = append(opts, session.WithDebounce(flags.debounce))
	}
	return session.New(ctx, metadata.ParseItems(items), opts...)
}
