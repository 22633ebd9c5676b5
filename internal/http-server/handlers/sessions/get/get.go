package get

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"tutorhub-service/api"
	"tutorhub-service/internal/session"
	"tutorhub-service/pkg/response"
	"tutorhub-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type SnapshotProvider interface {
	Snapshot(ctx context.Context, id string) (session.State, error)
}

type Response struct {
	response.Response
	Session api.SessionResponse `json:"session"`
}

func New(log *slog.Logger, provider SnapshotProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sessions.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			log.Error("id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "id is required"))
			return
		}

		state, err := provider.Snapshot(r.Context(), id)

		if errors.Is(err, session.ErrSessionNotFound) {
			log.Error("session not found", slog.String("session_id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "session not found"))
			return
		}

		if err != nil {
			log.Error("Failed to get session", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to get session"))
			return
		}

		render.JSON(w, r, Response{
			Session: sessionResponse(id, state),
		})
	}
}

func sessionResponse(id string, state session.State) api.SessionResponse {
	members := make([]string, 0, len(state.Members))
	for _, m := range state.Members {
		members = append(members, string(m))
	}

	joined := make([]string, 0, len(state.Joined))
	for _, m := range state.Joined {
		joined = append(joined, string(m))
	}

	return api.SessionResponse{
		ID:       id,
		Members:  members,
		Joined:   joined,
		Capacity: len(members),
	}
}
