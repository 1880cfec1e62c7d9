package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/plexo-core/api/responses"
	"github.com/angelmondragon/plexo-core/api/validators"
	"github.com/angelmondragon/plexo-core/internal/lifecycle"
	"github.com/angelmondragon/plexo-core/pkg/logger"
)

var marketLimit = validators.IntRange{Default: 100, Min: 1, Max: 500}

func InventoryList(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeState(w, sess, http.StatusOK, sess.Snapshot().Inventory)
	}
}

func InventorySave(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var draft lifecycle.ItemDraft
		if err := validators.DecodeJSONBody(r, &draft); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		item, err := sess.SaveItem(r.Context(), draft)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeState(w, sess, http.StatusCreated, item)
	}
}

func InventoryUpdate(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithItemID(r.Context(), chi.URLParam(r, "itemId"))
		var update lifecycle.ItemUpdate
		if err := validators.DecodeJSONBody(r, &update); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		item, err := sess.UpdateItem(ctx, chi.URLParam(r, "itemId"), update)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeState(w, sess, http.StatusOK, item)
	}
}

func InventoryDelete(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithItemID(r.Context(), chi.URLParam(r, "itemId"))
		if err := sess.DeleteItem(ctx, chi.URLParam(r, "itemId")); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeState(w, sess, http.StatusOK, map[string]string{"deleted": chi.URLParam(r, "itemId")})
	}
}

// InventoryListOnMarket moves an inventory item onto the market.
func InventoryListOnMarket(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithItemID(r.Context(), chi.URLParam(r, "itemId"))
		item, err := sess.ListItem(ctx, chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeState(w, sess, http.StatusOK, item)
	}
}

// MarketList returns up to limit market items in display order.
func MarketList(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.QueryInt(r, "limit", marketLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		market := sess.Snapshot().Market
		if len(market) > limit {
			market = market[:limit]
		}
		writeState(w, sess, http.StatusOK, market)
	}
}

func MarketBuy(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithItemID(r.Context(), chi.URLParam(r, "itemId"))
		saved, err := sess.BuyItem(ctx, chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeState(w, sess, http.StatusOK, saved)
	}
}

func SavedList(sess Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeState(w, sess, http.StatusOK, sess.Snapshot().Saved)
	}
}

func SavedRemove(sess Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logg.WithItemID(r.Context(), chi.URLParam(r, "savedId"))
		if err := sess.RemoveSaved(ctx, chi.URLParam(r, "savedId")); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		writeState(w, sess, http.StatusOK, map[string]string{"removed": chi.URLParam(r, "savedId")})
	}
}
