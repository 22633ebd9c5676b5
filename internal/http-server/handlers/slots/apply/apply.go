package apply

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"tutorhub-service/api"
	"tutorhub-service/pkg/response"
	"tutorhub-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type BatchApplier interface {
	ApplySlotChanges(ctx context.Context, req *api.SlotBatchRequest) error
}

type Request struct {
	api.SlotBatchRequest
}

func New(log *slog.Logger, applier BatchApplier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.slots.apply.New"

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

		log.Info("Request body decoded",
			slog.String("owner_id", req.OwnerID),
			slog.Int("creates", len(req.Creates)),
			slog.Int("updates", len(req.Updates)),
			slog.Int("deletes", len(req.Deletes)),
		)

		err := applier.ApplySlotChanges(r.Context(), &req.SlotBatchRequest)

		if errors.Is(err, response.ErrBadRequest) {
			log.Error("Invalid slot batch", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "invalid slot batch"))
			return
		}

		if errors.Is(err, response.ErrConflict) {
			log.Info("Slot batch rejected as conflicting", slog.String("owner_id", req.OwnerID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, response.Error(string(response.CONFLICT), "slot batch conflicts with existing availability"))
			return
		}

		if errors.Is(err, response.ErrLocked) {
			log.Info("Owner slot set is locked", slog.String("owner_id", req.OwnerID))
			w.WriteHeader(http.StatusLocked)
			render.JSON(w, r, response.Error(string(response.LOCKED), "another change is in progress"))
			return
		}

		if errors.Is(err, response.ErrNotFound) {
			log.Error("resource not found")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(string(response.NOT_FOUND), "resource not found"))
			return
		}

		if err != nil {
			log.Error("Failed to apply slot batch", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to apply slot batch"))
			return
		}

		log.Info("Slot batch applied", slog.String("owner_id", req.OwnerID))
		render.JSON(w, r, response.Response{})
	}
}
