package get

import (
	"context"
	"log/slog"
	"net/http"
	"tutorhub-service/api"
	"tutorhub-service/pkg/response"
	"tutorhub-service/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type FeedProvider interface {
	AvailabilityFeed(ctx context.Context, ownerID string) ([]api.DayAvailability, error)
}

type Response struct {
	response.Response
	OwnerID string                `json:"owner_id"`
	Days    []api.DayAvailability `json:"days"`
}

func New(log *slog.Logger, provider FeedProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.availability.get.New"

		log = log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ownerID := chi.URLParam(r, "owner_id")
		if ownerID == "" {
			log.Error("owner_id is empty")
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error(string(response.BAD_REQUEST), "owner_id is required"))
			return
		}

		days, err := provider.AvailabilityFeed(r.Context(), ownerID)
		if err != nil {
			log.Error("Failed to build availability feed", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(string(response.FAILED_REQUEST), "failed to build availability feed"))
			return
		}

		log.Info("Availability feed built", slog.String("owner_id", ownerID), slog.Int("days", len(days)))

		render.JSON(w, r, Response{
			OwnerID: ownerID,
			Days:    days,
		})
	}
}
