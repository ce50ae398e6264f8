package main

import (
	"fmt"

	"staffhub-api/internal/cache"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func warmCmd() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Run one cache warming pass",
		Long:  "Warm the cache for every active tenant, or for one tenant with --tenant, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if tenantID != "" {
				if err := cache.CheckSegment(tenantID); err != nil {
					return fmt.Errorf("--tenant: %w", err)
				}
				if err := a.warmer.WarmTenant(cmd.Context(), tenantID); err != nil {
					return fmt.Errorf("warm tenant %s: %w", tenantID, err)
				}
				a.logger.Info("tenant warmed", zap.String("tenant_id", tenantID))
				return nil
			}

			report, err := a.warmer.RunNow(cmd.Context())
			if err != nil {
				return err
			}
			if len(report.Failed) > 0 {
				return fmt.Errorf("%d of %d tenants failed: %v", len(report.Failed), report.Tenants, report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Warm only this tenant")

	return cmd
}
