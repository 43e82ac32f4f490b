package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by every HTTP handler that mounts routes on the app router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}
