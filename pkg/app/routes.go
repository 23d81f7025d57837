package app

// initDefaultRoutes initializes the applications default routes.
//  These are the routes which always are the same in every application.
//  Things like user api, version, ...
func (app *App) initDefaultRoutes() {
	api := app.web.Group("/")
	if app.config.Webserver.Webservices["version"] {
		api.Get("/version", app.HandleVersion())
	}
	if app.config.Webserver.Webservices["health"] {
		api.Get("/health", app.HandleHealth())
	}
	if app.config.Webserver.Webservices["message"] {
		api.Get("/message", app.HandleMessage())
	}
	if app.config.Webserver.Webservices["session"] {
		api.Get("/session", app.HandleSession())
	}
	if app.config.Webserver.Webservices["sessions"] {
		api.Get("/sessions", app.HandleSessions())
	}
	if app.config.Webserver.Webservices["control"] {
		api.Post("/session/begin", app.HandleBegin())
		api.Post("/session/end", app.HandleEnd())
		api.Post("/session/sample", app.HandleSample())
	}
}
