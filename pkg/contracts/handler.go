// Package contracts holds the small interfaces shared between the
// application shell and feature packages.
package contracts

import "github.com/julienschmidt/httprouter"

// Handler mounts a feature's routes on the shared router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
