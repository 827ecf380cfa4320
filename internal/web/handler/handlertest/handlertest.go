// Package handlertest builds handler dependencies on an in-memory database
// for handler tests.
package handlertest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/config"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/models"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/route"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler"
	authmw "github.com/QRMenu-Admin/QRMenu-Admin/internal/web/middleware/auth"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/session"
)

// Role names created by New.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleRestaurant = "restaurant"
)

// Env is a wired set of handler dependencies.
type Env struct {
	Deps  *handler.Deps
	Roles map[string]uint
}

var grants = map[string][]auth.PermissionKey{ //nolint:gochecknoglobals
	RoleSuperAdmin: {
		auth.PermRolesManage, auth.PermUsersManage, auth.PermUsersRead, auth.PermAdminDashboardView,
		auth.PermMenuRead, auth.PermMenuWrite, auth.PermTablesWrite, auth.PermOrdersRead, auth.PermOrdersWrite,
	},
	RoleAdmin: {auth.PermUsersManage, auth.PermUsersRead, auth.PermAdminDashboardView, auth.PermMenuRead},
	RoleRestaurant: {
		auth.PermDashboardView, auth.PermMenuRead, auth.PermMenuWrite,
		auth.PermTablesWrite, auth.PermOrdersRead, auth.PermOrdersWrite,
	},
}

// New migrates a fresh database and seeds the three system roles.
func New(t *testing.T) *Env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...), "failed to migrate test database")

	levels := map[string]int{
		RoleSuperAdmin: auth.LevelSuperAdmin,
		RoleAdmin:      auth.LevelAdmin,
		RoleRestaurant: auth.LevelRestaurant,
	}

	permissions := make(map[auth.PermissionKey]uint)
	env := &Env{Roles: make(map[string]uint, len(levels))}

	for name, level := range levels {
		r := models.Role{Name: name, HierarchyLevel: level, IsActive: true, IsSystemRole: true}
		require.NoError(t, db.Create(&r).Error)
		env.Roles[name] = r.ID

		for _, key := range grants[name] {
			id, ok := permissions[key]
			if !ok {
				p := models.Permission{Name: key.String(), Resource: key.Resource, Action: key.Action}
				require.NoError(t, db.Create(&p).Error)
				id = p.ID
				permissions[key] = id
			}

			require.NoError(t, db.Omit("Role", "Permission").
				Create(&models.RolePermission{RoleID: r.ID, PermissionID: id}).Error)
		}
	}

	svc, err := auth.NewService(auth.NewGormStore(db), 16)
	require.NoError(t, err)

	cfg := &config.Config{
		Webserver: config.Webserver{
			URL:     "http://localhost",
			Port:    3000,
			Session: config.Session{ExpiryTime: time.Hour, CookieName: session.DefaultCookieName},
		},
		Auth: config.Auth{LocalDB: config.LocalDB{Enabled: true, AllowSignup: true}},
		RBAC: config.RBAC{DefaultRole: RoleRestaurant},
	}

	storage, err := session.NewMemoryStorage(0)
	require.NoError(t, err)

	sessions := session.NewManager(storage, cfg.Webserver.Session)
	gate := auth.NewGate(sessions)
	paths := route.DefaultPaths()

	env.Deps = &handler.Deps{
		Cfg:         cfg,
		DB:          db,
		Auth:        svc,
		Invalidator: svc,
		Gate:        gate,
		Local:       auth.NewLocalProvider(db, svc, RoleRestaurant),
		Sessions:    sessions,
		Flows:       session.NewFlows(storage, false),
		Routes:      route.NewController(gate, svc, route.WithPaths(paths)),
		Table:       route.DefaultTable(paths),
		Validator:   handler.NewValidator(),
	}

	return env
}

// App returns a fiber app that identifies the session cookie, the way the
// web service does, with services initialized on it.
func (e *Env) App(t *testing.T, services ...handler.Service) *fiber.App {
	t.Helper()

	app := fiber.New()
	app.Use(authmw.Identify(e.Deps.Sessions))

	for _, s := range services {
		require.NoError(t, s.Init(app, e.Deps))
	}

	return app
}

// Principal creates an active local principal holding role. An empty role
// creates a principal without assignments.
func (e *Env) Principal(t *testing.T, email, password, role string) uuid.UUID {
	t.Helper()

	user := models.User{Email: email, Active: true, AuthSource: models.AuthSourceLocal}

	if password != "" {
		hash, err := models.HashPassword(password)
		require.NoError(t, err)
		user.Password = hash
	}

	require.NoError(t, e.Deps.DB.Create(&user).Error)

	if role != "" {
		require.NoError(t, e.Deps.DB.Omit("Role").Create(&models.UserRole{
			UserID: user.ID, RoleID: e.Roles[role], IsActive: true, AssignedAt: time.Now(),
		}).Error)
	}

	return user.ID
}

// SignIn creates a session for the principal and returns its cookie.
func (e *Env) SignIn(t *testing.T, principalID uuid.UUID) *http.Cookie {
	t.Helper()

	sid, _, err := e.Deps.Sessions.Create(principalID, "", "")
	require.NoError(t, err)

	return &http.Cookie{Name: session.DefaultCookieName, Value: sid}
}

// Request builds a request with an optional JSON body and cookie.
func Request(method, target string, body any, cookie *http.Cookie) *http.Request {
	var reader io.Reader

	if body != nil {
		out, _ := json.Marshal(body)
		reader = strings.NewReader(string(out))
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if cookie != nil {
		req.AddCookie(cookie)
	}

	return req
}

// Do runs req against app.
func Do(t *testing.T, app *fiber.App, req *http.Request) *http.Response {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

// Decode reads a JSON response body into v.
func Decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()

	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// SessionCookie returns the session cookie set by resp, nil if none.
func SessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.DefaultCookieName && c.Value != "" {
			return c
		}
	}

	return nil
}
