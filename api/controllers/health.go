package controllers

import (
	"net/http"

	"github.com/chiayulin/pickline-backend/api/responses"
	"github.com/chiayulin/pickline-backend/pkg/config"
	"github.com/chiayulin/pickline-backend/pkg/db"
	pkgerrors "github.com/chiayulin/pickline-backend/pkg/errors"
	"github.com/chiayulin/pickline-backend/pkg/logger"
	"github.com/chiayulin/pickline-backend/pkg/storage/supabase"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pickline-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, storageP supabase.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pickline-Env", cfg.App.Env)

		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		if storageP != nil {
			if err := storageP.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storage unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
