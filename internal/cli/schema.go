package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aradsms/client_directory/internal/client_service/domain"
)

func newSchemaCmd(opts *rootOptions) *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage the client tables",
	}

	schemaCmd.AddCommand(schemaAction(opts, "ensure", "Create the client tables if they do not exist", "Schema ensured",
		func(ctx context.Context, m domain.SchemaManager) error { return m.EnsureTables(ctx) }))
	schemaCmd.AddCommand(schemaAction(opts, "drop", "Drop the client tables and all their data", "Schema dropped",
		func(ctx context.Context, m domain.SchemaManager) error { return m.DropTables(ctx) }))
	schemaCmd.AddCommand(schemaAction(opts, "setup", "Drop and recreate the client tables", "Schema recreated",
		func(ctx context.Context, m domain.SchemaManager) error { return m.Setup(ctx) }))
	return schemaCmd
}

func schemaAction(opts *rootOptions, use, short, done string, run func(context.Context, domain.SchemaManager) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := opts.initServices(cmd)
			if err != nil {
				return err
			}
			defer services.Close()

			if err := run(cmd.Context(), services.Schema); err != nil {
				return fmt.Errorf("schema %s failed: %w", use, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), done)
			return nil
		},
	}
}
