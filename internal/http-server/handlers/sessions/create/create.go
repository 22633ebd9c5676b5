package create

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
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type SessionCreator interface {
	Create(ctx context.Context, id string, members []session.MemberID) (session.State, error)
}

type Request struct {
	api.SessionCreateRequest
}

type Response struct {
	response.Response
	Session api.SessionResponse `json:"session"`
}

func New(log *slog.Logger, creator SessionCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.sessions.create.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "failed to decode request"))
			return
		}

		if len(req.Members) == 0 {
			log.Error("members list is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "members list is required"))
			return
		}

		members := make([]session.MemberID, 0, len(req.Members))
		for _, m := range req.Members {
			members = append(members, session.MemberID(m))
		}

		id := uuid.NewString()

		state, err := creator.Create(r.Context(), id, members)

		if errors.Is(err, session.ErrSessionExists) {
			log.Error("session already exists", slog.String("session_id", id))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "session already exists"))
			return
		}

		if err != nil {
			log.Error("Failed to create session", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to create session"))
			return
		}

		log.Info("Session created", slog.String("session_id", id), slog.Int("capacity", len(state.Members)))

		w.WriteHeader(http.StatusCreated)
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
