// Package user provides the admin API for principals: listing them, their
// role assignments, activation and the audit trail of access changes.
package user

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/controller/assignment"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/controller/audit"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler"
	authmw "github.com/QRMenu-Admin/QRMenu-Admin/internal/web/middleware/auth"
)

const (
	// Path is the base path for principal management.
	Path = handler.RootPath + "admin/api/users"
	// AuditPath lists role and assignment changes.
	AuditPath = handler.RootPath + "admin/api/audit"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25
	maxPageSize     = 100
)

var errInvalidID = errors.New("invalid id")

// View is a principal as returned by the API. The password hash never
// leaves the database layer.
type View struct {
	ID          uuid.UUID         `json:"id"`
	Email       string            `json:"email"`
	DisplayName string            `json:"displayName"`
	Active      bool              `json:"active"`
	AuthSource  models.AuthSource `json:"authSource"`
	LastLoginAt *time.Time        `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	Assignments []AssignmentView  `json:"assignments,omitempty"`
}

// AssignmentView is a role assignment.
type AssignmentView struct {
	ID             uint       `json:"id"`
	RoleID         uint       `json:"roleId"`
	Role           string     `json:"role"`
	HierarchyLevel int        `json:"hierarchyLevel"`
	IsActive       bool       `json:"isActive"`
	AssignedAt     time.Time  `json:"assignedAt"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	AssignedBy     *uuid.UUID `json:"assignedBy,omitempty"`
}

// Page is one page of principals.
type Page struct {
	Items    []View `json:"items"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// GrantForm grants a role to the principal of the path.
type GrantForm struct {
	RoleID    uint       `json:"roleId"    validate:"required,gt=0"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// ActiveForm activates or deactivates a principal.
type ActiveForm struct {
	Active bool `json:"active"`
}

// AuditView is an audit event.
type AuditView struct {
	ID        uint               `json:"id"`
	ActorID   *uuid.UUID         `json:"actorId,omitempty"`
	SubjectID *uuid.UUID         `json:"subjectId,omitempty"`
	RoleID    uint               `json:"roleId,omitempty"`
	Action    models.AuditAction `json:"action"`
	Details   map[string]any     `json:"details,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

func newView(u *models.User) View {
	return View{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Active:      u.Active,
		AuthSource:  u.AuthSource,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func newAssignmentView(a *models.UserRole) AssignmentView {
	return AssignmentView{
		ID:             a.ID,
		RoleID:         a.RoleID,
		Role:           a.Role.Name,
		HierarchyLevel: a.Role.HierarchyLevel,
		IsActive:       a.IsActive,
		AssignedAt:     a.AssignedAt,
		ExpiresAt:      a.ExpiresAt,
		AssignedBy:     a.AssignedBy,
	}
}

// Service manages principals and their assignments.
type Service struct {
	deps        *handler.Deps
	assignments *assignment.Manager
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) error {
	if app == nil || !deps.Valid() || deps.Gate == nil || deps.Local == nil ||
		deps.Invalidator == nil || deps.Validator == nil {
		return handler.ErrNilDeps
	}

	s.deps = deps
	s.assignments = assignment.New(deps.DB, deps.Invalidator)

	requireSession := authmw.RequireSession(deps.Gate)
	canRead := auth.RequireAnyPermission(deps.Auth, auth.PermUsersRead, auth.PermUsersManage)
	canManage := auth.RequirePermission(deps.Auth, auth.PermUsersManage)

	app.Get(AuditPath, requireSession, canRead, s.Audit)

	app.Route(Path, func(router fiber.Router) {
		router.Use(requireSession)
		router.Get(handler.RootPath, canRead, s.List)
		router.Get("/:id", canRead, s.Get)
		router.Put("/:id/active", canManage, s.SetActive)
		router.Post("/:id/roles", canManage, s.Grant)
		router.Delete("/:id/roles/:assignment", canManage, s.Revoke)
	})

	return nil
}

// List shows principals with simple pagination and search.
func (s *Service) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize := c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = DefaultPageSize
	}

	tx := s.deps.DB.WithContext(c.UserContext()).Model(&models.User{})

	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		like := "%" + search + "%"
		tx = tx.Where("LOWER(email) LIKE ? OR LOWER(display_name) LIKE ?", like, like)
	}

	tx = tx.Session(&gorm.Session{})

	var (
		users []models.User
		total int64
	)

	if err := tx.Count(&total).Error; err != nil {
		return s.fail(c, err)
	}

	if err := tx.Order("email").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		return s.fail(c, err)
	}

	out := Page{Items: make([]View, 0, len(users)), Total: total, Page: page, PageSize: pageSize}
	for i := range users {
		out.Items = append(out.Items, newView(&users[i]))
	}

	return c.JSON(out)
}

// Get returns a principal with its assignments.
func (s *Service) Get(c *fiber.Ctx) error {
	principalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return handler.Error(c, fiber.StatusBadRequest, errInvalidID.Error())
	}

	u, err := s.deps.Local.GetPrincipal(c.UserContext(), principalID)
	if err != nil {
		return s.fail(c, err)
	}

	assignments, err := s.assignments.List(c.UserContext(), principalID)
	if err != nil {
		return s.fail(c, err)
	}

	view := newView(u)
	view.Assignments = make([]AssignmentView, 0, len(assignments))

	for i := range assignments {
		view.Assignments = append(view.Assignments, newAssignmentView(&assignments[i]))
	}

	return c.JSON(view)
}

// SetActive activates or deactivates a principal. A principal cannot
// deactivate itself nor anyone ranked at or above its own level.
func (s *Service) SetActive(c *fiber.Ctx) error {
	principalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return handler.Error(c, fiber.StatusBadRequest, errInvalidID.Error())
	}

	form := new(ActiveForm)
	if err = c.BodyParser(form); err != nil {
		return handler.BadRequest(c, err)
	}

	actor, rp, err := s.actor(c)
	if err != nil {
		return s.fail(c, err)
	}

	if !form.Active {
		if actor == principalID {
			return handler.Error(c, fiber.StatusConflict, "cannot deactivate yourself")
		}

		target, errTarget := s.deps.Auth.Refresh(c.UserContext(), principalID)
		if errTarget != nil {
			return s.fail(c, errTarget)
		}

		if !outranks(rp, target.Level()) {
			return s.fail(c, auth.ErrPermissionDenied)
		}
	}

	if err = s.deps.Local.SetActive(c.UserContext(), principalID, form.Active); err != nil {
		return s.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Grant assigns a role to the principal.
func (s *Service) Grant(c *fiber.Ctx) error {
	principalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return handler.Error(c, fiber.StatusBadRequest, errInvalidID.Error())
	}

	form := new(GrantForm)
	if err = c.BodyParser(form); err != nil {
		return handler.BadRequest(c, err)
	}

	if err = s.deps.Validator.Struct(form); err != nil {
		return handler.BadRequest(c, err)
	}

	actor, err := s.checkRole(c, form.RoleID)
	if err != nil {
		return s.fail(c, err)
	}

	a, err := s.assignments.Grant(c.UserContext(), actor, assignment.Grant{
		PrincipalID: principalID,
		RoleID:      form.RoleID,
		ExpiresAt:   form.ExpiresAt,
	})
	if err != nil {
		return s.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": a.ID})
}

// Revoke deactivates one of the principal's assignments.
func (s *Service) Revoke(c *fiber.Ctx) error {
	principalID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return handler.Error(c, fiber.StatusBadRequest, errInvalidID.Error())
	}

	id, err := c.ParamsInt("assignment")
	if err != nil || id <= 0 {
		return handler.Error(c, fiber.StatusBadRequest, errInvalidID.Error())
	}

	var a models.UserRole

	err = s.deps.DB.WithContext(c.UserContext()).
		Where("id = ? AND user_id = ?", id, principalID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.fail(c, assignment.ErrAssignmentNotFound)
	}

	if err != nil {
		return s.fail(c, err)
	}

	actor, err := s.checkRole(c, a.RoleID)
	if err != nil {
		return s.fail(c, err)
	}

	if err = s.assignments.Revoke(c.UserContext(), actor, a.ID); err != nil {
		return s.fail(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Audit lists the newest role and assignment changes.
func (s *Service) Audit(c *fiber.Ctx) error {
	filter := audit.Filter{
		RoleID: uint(max(c.QueryInt("role"), 0)), //nolint:gosec
		Limit:  c.QueryInt("limit", audit.DefaultLimit),
	}

	if subject := c.Query("subject"); subject != "" {
		id, err := uuid.Parse(subject)
		if err != nil {
			return handler.Error(c, fiber.StatusBadRequest, errInvalidID.Error())
		}

		filter.Subject = id
	}

	events, err := audit.List(c.UserContext(), s.deps.DB, filter)
	if err != nil {
		return s.fail(c, err)
	}

	out := make([]AuditView, 0, len(events))
	for _, e := range events {
		out = append(out, AuditView{
			ID:        e.ID,
			ActorID:   e.ActorID,
			SubjectID: e.SubjectID,
			RoleID:    e.RoleID,
			Action:    e.Action,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		})
	}

	return c.JSON(out)
}

// actor returns the calling principal and its permission set, read from
// the store rather than the cache.
func (s *Service) actor(c *fiber.Ctx) (uuid.UUID, *auth.ResolvedPermissions, error) {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return uuid.Nil, nil, auth.ErrNoPrincipal
	}

	rp, err := s.deps.Auth.Refresh(c.UserContext(), actor)
	if err != nil {
		return uuid.Nil, nil, err
	}

	return actor, rp, nil
}

// outranks reports whether rp may act on something ranked at level. Super
// admins act on every level, everyone else strictly below its own.
func outranks(rp *auth.ResolvedPermissions, level int) bool {
	return rp.IsSuperAdmin() || level < rp.Level()
}

// checkRole lets the caller grant or revoke a role only when it outranks
// the role. System roles additionally need roles.manage, so that
// users.manage alone cannot mint admins.
func (s *Service) checkRole(c *fiber.Ctx, roleID uint) (uuid.UUID, error) {
	actor, rp, err := s.actor(c)
	if err != nil {
		return uuid.Nil, err
	}

	var r models.Role

	err = s.deps.DB.WithContext(c.UserContext()).First(&r, roleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, assignment.ErrRoleNotFound
	}

	if err != nil {
		return uuid.Nil, err
	}

	if r.IsSystemRole && !rp.Has(auth.PermRolesManage) {
		return uuid.Nil, auth.ErrPermissionDenied
	}

	if !outranks(rp, r.HierarchyLevel) {
		return uuid.Nil, auth.ErrPermissionDenied
	}

	return actor, nil
}

func (s *Service) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, assignment.ErrPrincipalNotFound):
		return handler.Error(c, fiber.StatusNotFound, auth.ErrUserNotFound.Error())
	case errors.Is(err, assignment.ErrRoleNotFound):
		return handler.Error(c, fiber.StatusNotFound, assignment.ErrRoleNotFound.Error())
	case errors.Is(err, assignment.ErrAssignmentNotFound):
		return handler.Error(c, fiber.StatusNotFound, assignment.ErrAssignmentNotFound.Error())
	case errors.Is(err, assignment.ErrExpiryInPast):
		return handler.Error(c, fiber.StatusBadRequest, assignment.ErrExpiryInPast.Error())
	case errors.Is(err, auth.ErrPermissionDenied), errors.Is(err, auth.ErrStoreUnavailable),
		errors.Is(err, auth.ErrNoPrincipal):
		return auth.Deny(c, err)
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("principal management failed")
		return handler.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
}
