package app

import (
	"errors"
	"net/http"

	"ldrmorse/pkg/session"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// defaultLimit is the count of archived messages returned without limit parameter.
const defaultLimit = 10

// samplesRequest is the body of POST /session/sample.
type samplesRequest struct {
	Values []int `json:"values"`
}

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
func (app *App) runWebServer() {
	err := app.web.Listen(app.urlParsed.Host)
	debug.ErrorLog.Print(err)
}

// HandleMessage returns the result of the last session.
func (app *App) HandleMessage() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request message")

		r := app.session.Last()
		if r.Ended.IsZero() {
			return fiber.NewError(http.StatusNotFound, "no session decoded yet")
		}
		return ctx.JSON(newMessage(r))
	}
}

// HandleSession returns the state of the current session and the text decoded so far.
func (app *App) HandleSession() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request session")

		state := app.session.State()
		resp := fiber.Map{
			"state":   state.String(),
			"samples": app.session.Samples(),
		}

		if state == session.Capturing {
			text, err := app.session.Poll()
			if err != nil {
				resp["error"] = err.Error()
			}
			resp["text"] = text
		}
		return ctx.JSON(resp)
	}
}

// HandleSessions returns the archived messages, the newest first.
func (app *App) HandleSessions() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request sessions")

		if app.archive == nil {
			return fiber.NewError(http.StatusNotFound, "archive disabled")
		}

		limit := ctx.QueryInt("limit", defaultLimit)
		if limit <= 0 {
			return fiber.NewError(http.StatusBadRequest, "invalid limit")
		}

		messages, err := app.archive.Recent(limit)
		if err != nil {
			debug.ErrorLog.Printf("read archive: %v", err)
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return ctx.JSON(messages)
	}
}

// HandleBegin starts a capture session.
func (app *App) HandleBegin() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request begin session")

		if err := app.BeginSession(); err != nil {
			return fiber.NewError(statusOf(err), err.Error())
		}
		return ctx.JSON(fiber.Map{"state": app.session.State().String()})
	}
}

// HandleEnd ends the capture session and returns the decoded message.
// A failed decoding is reported with status 422 and the message containing the error.
func (app *App) HandleEnd() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request end session")

		r, err := app.EndSession()
		switch {
		case errors.Is(err, session.ErrNotCapturing), errors.Is(err, session.ErrTerminated):
			return fiber.NewError(statusOf(err), err.Error())
		case err != nil:
			ctx.Status(http.StatusUnprocessableEntity)
		}
		return ctx.JSON(newMessage(r))
	}
}

// HandleSample records samples sent by a remote sensor.
func (app *App) HandleSample() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		var req samplesRequest
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		debug.TraceLog.Printf("web request %d samples", len(req.Values))

		for _, v := range req.Values {
			if err := app.session.Record(v); err != nil {
				return fiber.NewError(statusOf(err), err.Error())
			}
		}
		return ctx.JSON(fiber.Map{"samples": app.session.Samples()})
	}
}

// statusOf maps the session errors to http status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, session.ErrNotCapturing):
		return http.StatusConflict
	case errors.Is(err, session.ErrTerminated):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrInvalidSample):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
