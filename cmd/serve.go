package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/credverify/internal/model"
	"github.com/sells-group/credverify/internal/pipeline"
	"github.com/sells-group/credverify/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the verification HTTP API",
	Long:  "Serves verification requests and run history over HTTP. POST /api/verify runs the full verification step synchronously and returns the annotated result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		step, err := initVerifyStep()
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(st, step),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// newRouter wires the API routes. Split out so the handler stack can be
// exercised with httptest.
func newRouter(st store.Store, step *pipeline.Verify) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/runs", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		filter := store.RunFilter{
			Status:   model.RunStatus(q.Get("status")),
			SchemaID: q.Get("schema_id"),
			Limit:    50,
		}
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			filter.Limit = n
		}

		runs, err := st.ListRuns(req.Context(), filter)
		if err != nil {
			zap.L().Error("list runs failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "list runs failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
	})

	r.Get("/api/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Post("/api/verify", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			SchemaID string                  `json:"schema_id"`
			Name     string                  `json:"name"`
			Result   *model.ExtractionResult `json:"extraction_result"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.Result == nil {
			writeJSONError(w, http.StatusBadRequest, "extraction_result is required")
			return
		}

		run, err := st.CreateRun(req.Context(), model.Document{
			Name:     body.Name,
			SchemaID: body.SchemaID,
		})
		if err != nil {
			zap.L().Error("create run failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "create run failed")
			return
		}
		if err := st.UpdateRunStatus(req.Context(), run.ID, model.RunStatusVerifying); err != nil {
			zap.L().Warn("update run status failed", zap.String("run_id", run.ID), zap.Error(err))
		}

		output := step.Run(req.Context(), body.SchemaID, body.Result)

		result, err := runResult(output)
		if err != nil {
			zap.L().Error("encode result failed", zap.String("run_id", run.ID), zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "encode result failed")
			return
		}
		if err := st.UpdateRunResult(req.Context(), run.ID, result); err != nil {
			zap.L().Error("persist result failed", zap.String("run_id", run.ID), zap.Error(err))
		}

		payload, err := output.Payload()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "encode output failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"run_id":  run.ID,
			"result":  output.Result,
			"message": output.Message,
			"output":  json.RawMessage(payload),
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
