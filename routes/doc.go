// Package routes is the client-side route table. [Registry] turns an
// authorization menu into named chi routes and applies the registration on a
// background goroutine, so callers can only learn that a route exists by
// polling [Registry.HasRoute]. [History] records navigations.
package routes
