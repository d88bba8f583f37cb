package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// NewMigrateCommand applies pending database migrations.
func NewMigrateCommand(o *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.withSession(cmd.Context(), func(s *Session) error {
				if s.Migrate == nil {
					return errors.New("migrations are not available")
				}
				if err := s.Migrate(cmd.Context()); err != nil {
					return err
				}
				cmd.Println("migrations applied")
				return nil
			})
		},
	}
}
