// Package access lets a signed-in principal inspect its own access: the
// resolved permission set and the decision a navigation would get.
package access

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/route"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler"
	authmw "github.com/QRMenu-Admin/QRMenu-Admin/internal/web/middleware/auth"
)

const (
	// Path returns the caller's resolved access.
	Path = handler.APIPath + "/access"
	// RoutePath previews the navigation decision for ?path=.
	RoutePath = handler.APIPath + "/route-access"
)

// Summary is the resolved access of a principal.
type Summary struct {
	PrincipalID  uuid.UUID  `json:"principalId"`
	Role         string     `json:"role"`
	Level        int        `json:"level"`
	IsAdmin      bool       `json:"isAdmin"`
	IsSuperAdmin bool       `json:"isSuperAdmin"`
	Roles        []string   `json:"roles"`
	Permissions  []string   `json:"permissions"`
	ResolvedAt   time.Time  `json:"resolvedAt"`
	ValidUntil   *time.Time `json:"validUntil,omitempty"`
}

// NewSummary flattens a resolved set.
func NewSummary(rp *auth.ResolvedPermissions) Summary {
	roles := make([]string, 0, len(rp.Roles))
	for _, r := range rp.Roles {
		roles = append(roles, r.Name)
	}

	return Summary{
		PrincipalID:  rp.PrincipalID,
		Role:         rp.RoleName(),
		Level:        rp.Level(),
		IsAdmin:      rp.IsAdmin(),
		IsSuperAdmin: rp.IsSuperAdmin(),
		Roles:        roles,
		Permissions:  rp.Names(),
		ResolvedAt:   rp.ResolvedAt,
		ValidUntil:   rp.ValidUntil,
	}
}

// RouteDecision is the preview of one navigation.
type RouteDecision struct {
	Path     string `json:"path"`
	State    string `json:"state"`
	Location string `json:"location,omitempty"`
}

// Service is the access handler service.
type Service struct {
	deps  *handler.Deps
	paths route.Paths
}

// Init initializes the access handler.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() || deps.Gate == nil || deps.Routes == nil || deps.Table == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps
	s.paths = deps.Routes.Paths()

	requireSession := authmw.RequireSession(deps.Gate)

	app.Get(Path, requireSession, s.Access)
	app.Get(RoutePath, requireSession, s.Route)
	app.Get(s.paths.AccessDenied, s.Denied)

	return nil
}

// Access returns the caller's freshly resolved permission set.
func (s *Service) Access(c *fiber.Ctx) error {
	principalID, _ := auth.PrincipalFromContext(c)

	rp, err := s.deps.Auth.Refresh(c.UserContext(), principalID)
	if err != nil {
		return auth.Deny(c, err)
	}

	return c.JSON(NewSummary(rp))
}

// Route runs the route controller for ?path= as if the caller navigated there.
func (s *Service) Route(c *fiber.Ctx) error {
	target := c.Query("path")
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return handler.Error(c, fiber.StatusBadRequest, "path must be a local absolute path")
	}

	principalID, _ := auth.PrincipalFromContext(c)
	path, _, _ := strings.Cut(target, "?")

	decision := s.deps.Routes.Resolve(c.UserContext(), route.Request{
		SessionID:   auth.SessionFromContext(c),
		PrincipalID: principalID,
		Meta:        s.deps.Table.Lookup(path),
		URL:         target,
	})

	return c.JSON(RouteDecision{
		Path:     target,
		State:    decision.State.String(),
		Location: decision.Location,
	})
}

// Denied is where denied navigations land. It offers the original page for
// a retry.
func (s *Service) Denied(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": auth.MsgNotPermitted,
		"retry": handler.SafeRedirect(c.Query(s.paths.ReturnParam), ""),
	})
}
