package http

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/examhub/internal/attempt"
	"github.com/mind-engage/examhub/internal/exam"
	"github.com/mind-engage/examhub/internal/rbac"
)

type Deps struct {
	Catalog *exam.Catalog
	Engine  *attempt.Engine
	Timers  *TimerHub
	Events  EventReader // optional
	Tick    time.Duration
}

// Mount registers the exam and attempt API. The caller installs
// authentication so that subject and role are in the request context.
func Mount(r chi.Router, d Deps) {
	if d.Timers == nil {
		d.Timers = NewTimerHub()
		d.Engine.OnSubmit(d.Timers.Notify)
	}

	r.Route("/exams", func(er chi.Router) {
		er.With(rbac.Require(rbac.PermExamView)).Get("/", ListExamsHandler(d.Catalog))
		er.With(rbac.Require(rbac.PermExamCreate)).Post("/", CreateExamHandler(d.Catalog))

		er.Route("/{examID}", func(xr chi.Router) {
			xr.With(rbac.Require(rbac.PermExamView)).Get("/", GetExamHandler(d.Catalog))
			xr.With(rbac.Require(rbac.PermExamUpdateOwn)).Put("/", UpdateExamHandler(d.Catalog))
			xr.With(rbac.Require(rbac.PermExamDeleteOwn)).Delete("/", DeleteExamHandler(d.Catalog))
			xr.With(rbac.Require(rbac.PermExamUpdateOwn)).Post("/toggle", ToggleExamHandler(d.Catalog))

			xr.With(rbac.Require(rbac.PermAttemptCreate)).Post("/attempts", StartAttemptHandler(d.Engine))
			xr.With(rbac.Require(rbac.PermAttemptViewAll)).Get("/attempts", ListExamAttemptsHandler(d.Engine))
		})
	})

	r.Route("/attempts", func(ar chi.Router) {
		ar.With(rbac.Require(rbac.PermAttemptViewOwn)).Get("/", ListMyAttemptsHandler(d.Engine))

		ar.Route("/{attemptID}", func(xr chi.Router) {
			view := rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)
			xr.With(view).Get("/", GetAttemptHandler(d.Engine))
			xr.With(view).Get("/results", ResultsHandler(d.Engine))
			xr.With(view).Get("/timer", TimerStreamHandler(d.Engine, d.Timers, d.Tick))

			xr.With(rbac.Require(rbac.PermAttemptSave)).Put("/answers/{questionID}", SaveAnswerHandler(d.Engine))
			xr.With(rbac.Require(rbac.PermAttemptSave)).Post("/answers", SaveAnswersHandler(d.Engine))
			xr.With(rbac.Require(rbac.PermAttemptSubmit)).Post("/submit", SubmitAttemptHandler(d.Engine))
		})
	})

	if d.Events != nil {
		// Events carry attempt payloads, so readers also need attempt:view-all.
		r.With(rbac.RequireAll(rbac.PermEventsRead, rbac.PermAttemptViewAll)).Get("/events", ListEventsHandler(d.Events))
	}
}
