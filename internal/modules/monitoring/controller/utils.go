package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"serverwatch/internal/modules/monitoring/types"
	"serverwatch/internal/utils"
)

// ChangedEvent is sent in HX-Trigger after every mutation; the dashboard
// partials refresh on it.
const ChangedEvent = "readings-changed"

func parseReadingID(r *http.Request) (int64, error) {
	s := r.PathValue("id")
	if s == "" {
		return 0, errors.New("missing reading id")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid reading id (expected positive integer)")
	}
	return id, nil
}

// candidateFromForm reads a submission from an urlencoded or multipart form.
func candidateFromForm(r *http.Request) (types.Candidate, error) {
	if err := r.ParseForm(); err != nil {
		return types.Candidate{}, err
	}
	return types.Candidate{
		Tanggal:       r.PostFormValue(string(types.FieldTimestamp)),
		Petugas:       r.PostFormValue(string(types.FieldOperator)),
		Suhu:          types.NumericText(r.PostFormValue(string(types.FieldTemperature))),
		Kelembaban:    types.NumericText(r.PostFormValue(string(types.FieldHumidity))),
		StatusAC:      r.PostFormValue(string(types.FieldAC)),
		StatusUPS:     r.PostFormValue(string(types.FieldUPS)),
		StatusListrik: r.PostFormValue(string(types.FieldPower)),
		StatusServer:  r.PostFormValue(string(types.FieldServer)),
		Catatan:       r.PostFormValue(string(types.FieldNotes)),
	}, nil
}

// removeAllConfirmed requires both confirmation parameters, mirroring the two
// prompts the operator answers.
func removeAllConfirmed(r *http.Request) bool {
	q := r.URL.Query()
	return strings.EqualFold(q.Get("confirm"), "yes") && strings.EqualFold(q.Get("confirm_again"), "yes")
}

func writeValidationError(w http.ResponseWriter, ve *types.ValidationError) {
	utils.WriteJSON(w, http.StatusBadRequest, map[string]any{
		"error":   http.StatusText(http.StatusBadRequest),
		"message": ve.Message,
		"field":   ve.Field,
	})
}

func markChanged(w http.ResponseWriter) {
	w.Header().Set("HX-Trigger", ChangedEvent)
}
