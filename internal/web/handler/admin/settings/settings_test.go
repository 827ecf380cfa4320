package settings

import (
	"context"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QRMenu-Admin/QRMenu-Admin/internal/db/controller/setting"
	"github.com/QRMenu-Admin/QRMenu-Admin/internal/web/handler/handlertest"
)

func TestList(t *testing.T) {
	env := handlertest.New(t)
	app := env.App(t, &Service{})
	ctx := context.Background()

	for i := range 30 {
		_, err := setting.Set(ctx, env.Deps.DB, "key_"+strconv.Itoa(100+i), []byte(`{"n":`+strconv.Itoa(i)+`}`))
		require.NoError(t, err)
	}

	_, err := setting.Set(ctx, env.Deps.DB, "rbac_seed", []byte(`{"version":1}`))
	require.NoError(t, err)

	root := env.SignIn(t, env.Principal(t, "root@qrmenu.test", "", handlertest.RoleSuperAdmin))

	testCases := []struct {
		name      string
		query     string
		wantItems int
		wantTotal int
		wantPage  int
		wantNext  bool
	}{
		{name: "first page", query: "", wantItems: DefaultPageSize, wantTotal: 31, wantPage: 1, wantNext: true},
		{name: "last page", query: "?page=2", wantItems: 6, wantTotal: 31, wantPage: 2},
		{name: "page out of range", query: "?page=9", wantItems: 6, wantTotal: 31, wantPage: 2},
		{name: "search name", query: "?search=RBAC", wantItems: 1, wantTotal: 1, wantPage: 1},
		{name: "search value", query: "?search=%22n%22:7", wantItems: 1, wantTotal: 1, wantPage: 1},
		{name: "no match", query: "?search=nothing", wantItems: 0, wantTotal: 0, wantPage: 1},
		{name: "page size", query: "?pageSize=10&page=4", wantItems: 1, wantTotal: 31, wantPage: 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp := handlertest.Do(t, app, handlertest.Request(fiber.MethodGet, Path+tc.query, nil, root))
			require.Equal(t, fiber.StatusOK, resp.StatusCode)

			var page Page
			handlertest.Decode(t, resp, &page)

			assert.Len(t, page.Items, tc.wantItems)
			assert.Equal(t, tc.wantTotal, page.TotalItems)
			assert.Equal(t, tc.wantPage, page.CurrentPage)
			assert.Equal(t, tc.wantNext, page.HasNextPage)
		})
	}
}

func TestListRequiresRolesManage(t *testing.T) {
	env := handlertest.New(t)
	app := env.App(t, &Service{})

	admin := env.SignIn(t, env.Principal(t, "ops@qrmenu.test", "", handlertest.RoleAdmin))

	resp := handlertest.Do(t, app, handlertest.Request(fiber.MethodGet, Path, nil, admin))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = handlertest.Do(t, app, handlertest.Request(fiber.MethodGet, Path, nil, nil))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
