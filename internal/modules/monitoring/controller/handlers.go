package controller

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"serverwatch/internal/logging"
	"serverwatch/internal/modules/monitoring/export"
	"serverwatch/internal/modules/monitoring/service"
	"serverwatch/internal/modules/monitoring/trend"
	"serverwatch/internal/modules/monitoring/types"
	"serverwatch/internal/modules/monitoring/views"
	"serverwatch/internal/utils"
)

const savedMessage = "Data berhasil disimpan!"

func (c *monitoringControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	snap, err := c.service.Snapshot(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("dashboard: load readings failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	data := views.NewDashboardData(snap, c.service.Now(), c.service.Location())
	utils.WriteHTML(w, http.StatusOK, func(out io.Writer) error {
		return c.renderer.RenderDashboard(out, data)
	})
}

func (c *monitoringControllerImpl) handleStatusPartial(w http.ResponseWriter, r *http.Request) {
	snap, err := c.service.Snapshot(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("status partial: load readings failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	data := views.NewStatusView(snap, c.service.Location())
	utils.WriteHTML(w, http.StatusOK, func(out io.Writer) error {
		return c.renderer.RenderStatus(out, data)
	})
}

func (c *monitoringControllerImpl) handleTablePartial(w http.ResponseWriter, r *http.Request) {
	history, err := c.service.History(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("table partial: load readings failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	data := views.NewTableView(history, c.service.Location())
	utils.WriteHTML(w, http.StatusOK, func(out io.Writer) error {
		return c.renderer.RenderTable(out, data)
	})
}

func (c *monitoringControllerImpl) handleFormPartial(w http.ResponseWriter, r *http.Request) {
	data := views.NewFormView(c.service.Now())
	utils.WriteHTML(w, http.StatusOK, func(out io.Writer) error {
		return c.renderer.RenderForm(out, data)
	})
}

// handleSubmitForm answers with the form partial: re-filled with the error on
// validation failure, fresh with advisories on success.
func (c *monitoringControllerImpl) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	candidate, err := candidateFromForm(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	res, err := c.service.Submit(r.Context(), service.SourceHTTP, candidate)
	var ve *types.ValidationError
	switch {
	case errors.As(err, &ve):
		logger.Info("form submission rejected", "field", ve.Field, "reason", ve.Message)
		form := views.WithOptions(views.FormView{Values: candidate, Error: ve.Message, ErrorField: ve.Field})
		utils.WriteHTML(w, http.StatusBadRequest, func(out io.Writer) error {
			return c.renderer.RenderForm(out, form)
		})
		return
	case err != nil:
		logger.Error("form submission failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to save reading")
		return
	}

	form := views.NewFormView(c.service.Now())
	form.Success = savedMessage
	form.Advisories = res.Advisories
	markChanged(w)
	utils.WriteHTML(w, http.StatusOK, func(out io.Writer) error {
		return c.renderer.RenderForm(out, form)
	})
}

func (c *monitoringControllerImpl) handleListReadings(w http.ResponseWriter, r *http.Request) {
	history, err := c.service.History(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("list readings failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	utils.WriteJSON(w, http.StatusOK, history)
}

func (c *monitoringControllerImpl) handleCreateReading(w http.ResponseWriter, r *http.Request) {
	var candidate types.Candidate
	if err := utils.DecodeJSON(r, &candidate); err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := c.service.Submit(r.Context(), service.SourceHTTP, candidate)
	var ve *types.ValidationError
	switch {
	case errors.As(err, &ve):
		writeValidationError(w, ve)
		return
	case err != nil:
		logging.FromContext(r.Context()).Error("create reading failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to save reading")
		return
	}
	markChanged(w)
	w.Header().Set("Location", "/api/v1/readings/"+strconv.FormatInt(res.Reading.ID, 10))
	utils.WriteJSON(w, http.StatusCreated, res)
}

func (c *monitoringControllerImpl) handleDeleteReading(w http.ResponseWriter, r *http.Request) {
	id, err := parseReadingID(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := c.service.Remove(r.Context(), id); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, "reading not found")
			return
		}
		logging.FromContext(r.Context()).Error("delete reading failed", "id", id, "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to delete reading")
		return
	}
	markChanged(w)
	w.WriteHeader(http.StatusNoContent)
}

func (c *monitoringControllerImpl) handleDeleteAllReadings(w http.ResponseWriter, r *http.Request) {
	if !removeAllConfirmed(r) {
		utils.WriteError(w, http.StatusBadRequest, "deleting all readings requires confirm=yes and confirm_again=yes")
		return
	}
	if err := c.service.RemoveAll(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("delete all readings failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to delete readings")
		return
	}
	markChanged(w)
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	Latest *types.Reading       `json:"latest"`
	Bands  types.Classification `json:"bands"`
}

func (c *monitoringControllerImpl) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := c.service.Snapshot(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("status: load readings failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	utils.WriteJSON(w, http.StatusOK, statusResponse{Latest: snap.Latest, Bands: snap.Bands})
}

func (c *monitoringControllerImpl) handleTrend(w http.ResponseWriter, r *http.Request) {
	history, err := c.service.History(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("trend: load readings failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}
	utils.WriteJSON(w, http.StatusOK, trend.Build(history, c.service.Location()))
}

func (c *monitoringControllerImpl) handleExport(w http.ResponseWriter, r *http.Request) {
	history, err := c.service.History(r.Context())
	if err != nil {
		logging.FromContext(r.Context()).Error("export: load readings failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to load readings")
		return
	}

	now := c.service.Now()
	var buf bytes.Buffer
	if err := export.Write(&buf, history, now, c.service.Location()); err != nil {
		if errors.Is(err, export.ErrNoData) {
			utils.WriteError(w, http.StatusNotFound, "Tidak ada data untuk diekspor")
			return
		}
		logging.FromContext(r.Context()).Error("export failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to export readings")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(now)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("export: write response failed", "error", err)
	}
}
