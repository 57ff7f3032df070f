package api

import (
	"drift-spot-service/internal/adapters/events"
	"drift-spot-service/internal/api/handlers"
	"drift-spot-service/internal/ports"
	"drift-spot-service/internal/services"
	"net/http"
)

type Deps struct {
	Repo               ports.SpotRepository
	Resolver           ports.PathResolver
	Sessions           *services.SessionRegistry
	Hub                *events.Hub
	PreviewConcurrency int
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	spotHandler := &handlers.SpotHandler{Repo: d.Repo}
	draftHandler := &handlers.DraftHandler{Sessions: d.Sessions}
	previewHandler := &handlers.PreviewHandler{
		Resolver:    d.Resolver,
		Concurrency: d.PreviewConcurrency,
	}

	mux.HandleFunc("GET /health", handlers.Health)

	mux.HandleFunc("GET /spots", spotHandler.List)
	mux.HandleFunc("GET /spots/{id}", spotHandler.Get)
	mux.HandleFunc("GET /spots/{id}/kml", spotHandler.KML)

	mux.HandleFunc("POST /routes/preview", previewHandler.Preview)

	mux.HandleFunc("GET /draft", draftHandler.Get)
	mux.HandleFunc("POST /draft/start", draftHandler.Start)
	mux.HandleFunc("POST /draft/points", draftHandler.AddPoint)
	mux.HandleFunc("PUT /draft/name", draftHandler.SetName)
	mux.HandleFunc("DELETE /draft", draftHandler.Cancel)
	mux.HandleFunc("POST /draft/finish", draftHandler.Finish)

	if d.Hub != nil {
		eventsHandler := &handlers.EventsHandler{Hub: d.Hub}
		mux.HandleFunc("GET /events", eventsHandler.Stream)
	}

	return requestIDMiddleware(loggingMiddleware(mux))
}
