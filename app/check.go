package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/daemon"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/route"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/access"
)

func init() { //nolint: gochecknoinits
	checkCmd.Flags().StringVar(&checkPath, "path", "", "Also decide a navigation to this path")

	rootCmd.AddCommand(checkCmd)
}

var (
	checkPath string

	checkCmd = &cobra.Command{
		Use:   "check <email|principal-id>",
		Short: "Print the resolved access of a principal",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			db, err := daemon.Open(ctx, &cfg)
			if err != nil {
				return err
			}

			var user models.User

			query := db.WithContext(ctx)
			if id, errParse := uuid.Parse(args[0]); errParse == nil {
				query = query.Where("id = ?", id)
			} else {
				query = query.Where("email = ?", strings.ToLower(strings.TrimSpace(args[0])))
			}

			if err = query.First(&user).Error; err != nil {
				return fmt.Errorf("principal %s: %w", args[0], err)
			}

			authService, err := auth.NewService(auth.NewGormStore(db), 1)
			if err != nil {
				return err
			}

			rp, err := authService.Resolve(ctx, user.ID)
			if err != nil {
				return err
			}

			out := struct {
				access.Summary
				Active   bool                  `json:"active"`
				Decision *access.RouteDecision `json:"decision,omitempty"`
			}{Summary: access.NewSummary(rp), Active: user.Active}

			if checkPath != "" {
				out.Decision = decide(rp, checkPath)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(out)
		},
	}
)

// decide answers a navigation to target for a live session of rp's principal.
func decide(rp *auth.ResolvedPermissions, target string) *access.RouteDecision {
	paths := route.Paths{
		AdminPrefix: cfg.RBAC.AdminPrefix,
		Login:       cfg.RBAC.LoginPath,
		AdminLogin:  cfg.RBAC.AdminLoginPath,
		Home:        cfg.RBAC.HomePath,
		AdminHome:   cfg.RBAC.AdminHomePath,
	}

	d := paths.Decide(route.Input{
		PrincipalID: rp.PrincipalID,
		SessionLive: true,
		Admin:       rp.IsAdmin(),
		Meta:        route.DefaultTable(paths).Lookup(target),
		URL:         target,
	})

	return &access.RouteDecision{Path: target, State: d.State.String(), Location: d.Location}
}
