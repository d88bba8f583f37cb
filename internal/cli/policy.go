package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"docvault/internal/model"
)

type policyResolveOptions struct {
	org      string
	category string
}

// NewPolicyCommand groups policy inspection commands.
func NewPolicyCommand(o *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect versioning policies",
	}
	cmd.AddCommand(newPolicyResolveCommand(o))
	return cmd
}

func newPolicyResolveCommand(o *RootOptions) *cobra.Command {
	p := &policyResolveOptions{}
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the effective policy of an organization and category",
		Example: `  # Which policy applies to ACME contracts?
  docvaultctl policy resolve --org acme --category contracts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			category, err := p.validate()
			if err != nil {
				return err
			}
			return o.withSession(cmd.Context(), func(s *Session) error {
				policy, err := s.Backend.Policy(cmd.Context(), p.org, category)
				if err != nil {
					return err
				}
				return o.printJSON(map[string]any{
					"organization_id":    p.org,
					"category":           category,
					"versioning_enabled": policy.Enabled,
					"max_versions":       policy.MaxVersions,
				})
			})
		},
	}
	cmd.Flags().StringVar(&p.org, "org", "", "Organization id (required)")
	cmd.Flags().StringVar(&p.category, "category", "", "Document category (required)")
	return cmd
}

func (p *policyResolveOptions) validate() (model.Category, error) {
	if p.org == "" {
		return "", errors.New("--org is required")
	}
	return model.ParseCategory(p.category)
}
