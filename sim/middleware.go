package sim

// A Middleware implements one part of the actions of a component.
type Middleware interface {
	// Tick updates the state that the middleware is responsible for. It
	// returns true if progress is made.
	Tick() bool
}

// MiddlewareHolder maintains an ordered list of middlewares.
type MiddlewareHolder struct {
	middlewares []Middleware
}

// AddMiddleware appends a middleware to the holder.
func (holder *MiddlewareHolder) AddMiddleware(middleware Middleware) {
	holder.middlewares = append(holder.middlewares, middleware)
}

// Middlewares returns the list of middlewares.
func (holder *MiddlewareHolder) Middlewares() []Middleware {
	return holder.middlewares
}

// Tick runs the Tick function of all the middlewares, in order. It returns
// true if any of them made progress.
func (holder *MiddlewareHolder) Tick() bool {
	progress := false

	for _, middleware := range holder.middlewares {
		if middleware.Tick() {
			progress = true
		}
	}

	return progress
}
