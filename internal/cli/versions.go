package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"docvault/internal/model"
	"docvault/internal/versioning"
)

type documentFlags struct {
	org      string
	category string
	document string
}

func (d *documentFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.org, "org", "", "Organization id (required)")
	cmd.Flags().StringVar(&d.category, "category", "", "Document category (required)")
	cmd.Flags().StringVar(&d.document, "document", "", "Document id (required)")
}

func (d *documentFlags) ref() (model.DocumentRef, error) {
	if d.org == "" || d.document == "" {
		return model.DocumentRef{}, errors.New("--org and --document are required")
	}
	category, err := model.ParseCategory(d.category)
	if err != nil {
		return model.DocumentRef{}, err
	}
	return model.DocumentRef{OrganizationID: d.org, Category: category, DocumentID: d.document}, nil
}

// NewVersionsCommand groups commands working on the stored versions of one document.
func NewVersionsCommand(o *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List and prune document versions",
	}
	cmd.AddCommand(newVersionsListCommand(o))
	cmd.AddCommand(newVersionsPruneCommand(o))
	return cmd
}

func newVersionsListCommand(o *RootOptions) *cobra.Command {
	d := &documentFlags{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stored versions of a document, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ref, err := d.ref()
			if err != nil {
				return err
			}
			return o.withSession(cmd.Context(), func(s *Session) error {
				versions, err := s.Backend.Versions(cmd.Context(), ref)
				if err != nil {
					return err
				}
				return o.printJSON(versions)
			})
		},
	}
	d.bind(cmd)
	return cmd
}

type pruneOptions struct {
	documentFlags
	keep   int
	dryRun bool
}

func newVersionsPruneCommand(o *RootOptions) *cobra.Command {
	p := &pruneOptions{}
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete the oldest versions of a document beyond --keep",
		Example: `  # Keep the three newest versions
  docvaultctl versions prune --org acme --category legal --document 1b4e... --keep 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ref, err := p.ref()
			if err != nil {
				return err
			}
			if p.keep <= 0 {
				return errors.New("--keep must be at least 1")
			}
			return o.withSession(cmd.Context(), func(s *Session) error {
				if p.dryRun {
					return p.plan(cmd, o, s, ref)
				}
				report, err := s.Backend.EnforceRetention(cmd.Context(), ref, p.keep)
				if err != nil {
					return err
				}
				if err := o.printJSON(report); err != nil {
					return err
				}
				if len(report.Failed) > 0 || report.Abandoned {
					return errors.New("prune did not complete")
				}
				return nil
			})
		},
	}
	p.bind(cmd)
	cmd.Flags().IntVar(&p.keep, "keep", 0, "Number of newest versions to keep (required)")
	cmd.Flags().BoolVar(&p.dryRun, "dry-run", false, "Only print what would be deleted")
	return cmd
}

func (p *pruneOptions) plan(cmd *cobra.Command, o *RootOptions, s *Session, ref model.DocumentRef) error {
	versions, err := s.Backend.Versions(cmd.Context(), ref)
	if err != nil {
		return err
	}
	report := versioning.RetentionReport{Listed: len(versions)}
	for i, v := range versions {
		if i < p.keep {
			report.Kept = append(report.Kept, v.Version)
		} else {
			report.Deleted = append(report.Deleted, v.Version)
		}
	}
	return o.printJSON(report)
}
