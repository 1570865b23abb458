package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/compozy/autotag/internal/domain"
	"github.com/compozy/autotag/internal/repository"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newLastRunCmd() *cobra.Command {
	var (
		output    string
		sessionID string
	)
	cmd := &cobra.Command{
		Use:   "last-run",
		Short: "Show the latest run journal record",
		Long: `Show a run recorded in the run journal. Runs are journaled when the
journal option is enabled; the most recent one is shown unless --session is given.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			journal := repository.NewJSONJournalRepository(afero.NewOsFs(), cfg.JournalDir)
			var record *domain.RunRecord
			if sessionID != "" {
				record, err = journal.Load(cmd.Context(), sessionID)
			} else {
				record, err = journal.LoadLatest(cmd.Context())
			}
			if err != nil {
				return err
			}
			data, err := encodeRecord(record, output)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format: json or yaml")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to show instead of the latest run")
	return cmd
}

func encodeRecord(record *domain.RunRecord, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(record, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode record: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml":
		data, err := yaml.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to encode record: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q: expected json or yaml", format)
	}
}
