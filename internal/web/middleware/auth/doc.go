// Package auth provides the session and navigation middleware of the web
// application.
//
// Identify runs first on every request: it reads the session cookie and
// stores the signed-in principal in fiber.Locals. Navigation then gates page
// requests through the route controller and answers with a redirect unless
// the decision is Allowed. API routes skip Navigation and use RequireSession
// plus the permission middlewares of the auth package instead, so they answer
// with status codes rather than redirects.
//
// Usage:
//
//	app.Use(authmiddleware.Identify(sessions))
//	app.Use(authmiddleware.Navigation(controller, table))
//	api := app.Group("/api", authmiddleware.RequireSession(gate))
package auth
