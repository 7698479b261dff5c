package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ConfabulousDev/wakalog/internal/analytics"
	"github.com/ConfabulousDev/wakalog/internal/logger"
	"github.com/ConfabulousDev/wakalog/internal/wakatime"
)

// HandleGetRanking serves GET /api/{item}/{from}/{to}.
// Malformed input is 400, a backend failure is 500, and a range with no
// stored days is 200 with [].
func HandleGetRanking(ranker Ranker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.Ctx(r.Context())

		item, err := analytics.ParseItemType(chi.URLParam(r, "item"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "Unknown item type")
			return
		}

		from, err := wakatime.ParseDate(chi.URLParam(r, "from"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid from date")
			return
		}
		to, err := wakatime.ParseDate(chi.URLParam(r, "to"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid to date")
			return
		}

		items, err := ranker.Rank(r.Context(), item, from, to)
		if err != nil {
			switch {
			case errors.Is(err, analytics.ErrInvalidRange):
				respondError(w, http.StatusBadRequest, "from must not be after to")
			case errors.Is(err, analytics.ErrUnknownItemType):
				respondError(w, http.StatusBadRequest, "Unknown item type")
			default:
				log.Error("ranking query failed", "item", item.String(), "error", err)
				respondError(w, http.StatusInternalServerError, "Failed to load ranking")
			}
			return
		}
		if items == nil {
			items = []analytics.RankingItem{}
		}

		respondJSON(w, http.StatusOK, items)
	}
}
