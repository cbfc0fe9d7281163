package handlers

import (
	"io"
	"net/http"

	"gearshare/models"
	"gearshare/services/triggers"
	"gearshare/utils"

	"github.com/gin-gonic/gin"
)

// maxEventBytes bounds a single delivery body.
const maxEventBytes = 10 << 20

// TriggerHandler exposes the trigger registry over HTTP for Pub/Sub push
// subscriptions and direct event posts.
type TriggerHandler struct {
	Registry *triggers.Registry
}

func NewTriggerHandler(reg *triggers.Registry) *TriggerHandler {
	return &TriggerHandler{Registry: reg}
}

type triggerResponse struct {
	models.Outcome
	EventID string   `json:"eventId"`
	Errors  []string `json:"errors,omitempty"`
}

// InvokeHandler runs POST /triggers/:name.
func (h *TriggerHandler) InvokeHandler(c *gin.Context) {
	name := c.Param("name")
	if !h.Registry.Has(name) {
		utils.JSONError(c, http.StatusNotFound, "unknown trigger", name)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxEventBytes))
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "could not read event", err.Error())
		return
	}
	delivery, err := triggers.DecodeDelivery(body)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "malformed event", err.Error())
		return
	}

	out, err := h.Registry.Invoke(c.Request.Context(), name, delivery)
	switch {
	case triggers.IsCode(err, triggers.CodeUnknownTrigger):
		utils.JSONError(c, http.StatusNotFound, "unknown trigger", err.Error())
		return
	case triggers.IsCode(err, triggers.CodeMalformedPayload):
		utils.JSONError(c, http.StatusBadRequest, "malformed event", err.Error())
		return
	case err != nil:
		utils.JSONError(c, http.StatusInternalServerError, "trigger failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, triggerResponse{
		Outcome: out,
		EventID: delivery.ID,
		Errors:  out.ErrorMessages(),
	})
}

// ListHandler runs GET /triggers.
func (h *TriggerHandler) ListHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"triggers": h.Registry.Names()})
}
