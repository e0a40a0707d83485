package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/etfolio/backend/src/logger"
	"github.com/username/etfolio/backend/src/models"
	"github.com/username/etfolio/backend/src/processors"
	"github.com/username/etfolio/backend/src/utils"
)

// ProjectionHandler serves the retirement projection calculator.
type ProjectionHandler struct{}

func NewProjectionHandler() *ProjectionHandler {
	return &ProjectionHandler{}
}

// HandleProject validates the input, runs the projection, and stores the
// input on the session so the calculator view can restore it later.
func (h *ProjectionHandler) HandleProject(w http.ResponseWriter, r *http.Request) {
	var input models.ProjectionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.SendJSONError(w, "Invalid body", http.StatusBadRequest)
		return
	}
	if err := input.Validate(); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if session, ok := SessionFromContext(r.Context()); ok {
		session.SetProjection(input)
	}

	result := processors.ProjectGrowth(input)
	logger.FromContext(r.Context()).Debug("Projection computed",
		"years", input.RetirementAge-input.CurrentAge, "finalValue", result.FinalValue)
	utils.SendJSON(w, result, http.StatusOK)
}

// HandleGetProjectionInput returns the session's stored projection input, or
// the calculator defaults when none has been saved yet.
func (h *ProjectionHandler) HandleGetProjectionInput(w http.ResponseWriter, r *http.Request) {
	if session, ok := SessionFromContext(r.Context()); ok {
		if input, found := session.ProjectionSnapshot(); found {
			utils.SendJSON(w, input, http.StatusOK)
			return
		}
	}
	utils.SendJSON(w, models.ProjectionInput{
		CurrentAge:          30,
		RetirementAge:       65,
		InitialAmount:       50000,
		MonthlyContribution: 4000,
		AnnualReturnPct:     5.0,
	}, http.StatusOK)
}
