/*
Package route decides what happens to a page navigation.

Every navigation to a page is classified by a Table into route Meta, then
resolved by a Controller: the session liveness check and the permission
resolution run concurrently and the Navigation stays Pending until both have
settled. The joined results are handed to Decide, which applies the access
rules in order and returns a terminal Decision.

	nav := controller.Navigate(ctx, route.Request{
		SessionID:   sid,
		PrincipalID: principalID,
		Meta:        table.Lookup(path),
		URL:         originalURL,
	})

	decision := nav.Wait(ctx)

A Navigation that is abandoned before it settles stays Pending forever.
*/
package route
