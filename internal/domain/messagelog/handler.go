package messagelog

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/hl7engine/internal/platform/auth"
	"github.com/ehr/hl7engine/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleViewer, auth.RoleIntegration))
	read.GET("/messages", h.ListMessages)
	read.GET("/messages/:id", h.GetMessage)
	read.GET("/messages/:id/raw", h.GetRawMessage)
}

func (h *Handler) ListMessages(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := ListFilter{
		MessageType: strings.ToUpper(c.QueryParam("type")),
		SendingApp:  c.QueryParam("sender"),
		AckCode:     strings.ToUpper(c.QueryParam("ack")),
		ControlID:   c.QueryParam("control_id"),
	}
	items, total, err := h.svc.List(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Record{}
	}
	resp := pagination.NewResponse(items, total, pg).WithNext(c.Request().URL.Path, c.QueryParams())
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) record(c echo.Context) (*Record, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "message not found")
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return r, nil
}

// messageView includes the raw message, which list responses leave out.
type messageView struct {
	*Record
	Raw string `json:"raw"`
}

func (h *Handler) GetMessage(c echo.Context) error {
	r, err := h.record(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageView{Record: r, Raw: r.Raw})
}

// GetRawMessage returns the message as received, segments separated by
// carriage returns.
func (h *Handler) GetRawMessage(c echo.Context) error {
	r, err := h.record(c)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "x-application/hl7-v2+er7", []byte(r.Raw))
}
