package hl7v2

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/encoding"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/schema"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/terser"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/validation"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("hl7path", func(fl validator.FieldLevel) bool {
		_, err := terser.ParsePath(fl.Field().String())
		return err == nil
	})
	return v
}

// Handler provides HTTP endpoints for parsing, encoding, navigating,
// validating, acknowledging and generating HL7 v2 messages.
type Handler struct {
	parser     *parser.Parser
	builder    *Builder
	ack        *Acknowledger
	validation validation.Options
}

// NewHandler creates an HL7 v2 handler.
func NewHandler(p *parser.Parser, b *Builder, ack *Acknowledger, opts validation.Options) *Handler {
	return &Handler{parser: p, builder: b, ack: ack, validation: opts}
}

// RegisterRoutes registers the HL7 v2 endpoints.
//
//	POST /hl7v2/parse          - ER7 to JSON tree
//	POST /hl7v2/encode         - re-encode, optionally with new delimiters
//	POST /hl7v2/terser         - get and set terser paths
//	POST /hl7v2/validate       - validation report
//	POST /hl7v2/ack            - acknowledgment for a message
//	POST /hl7v2/generate/adt   - ADT from FHIR Patient and Encounter
//	POST /hl7v2/generate/orm   - ORM from FHIR ServiceRequest
//	POST /hl7v2/generate/oru   - ORU from FHIR DiagnosticReport
//	GET  /hl7v2/versions       - supported versions
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/hl7v2/parse", h.ParseMessage)
	g.POST("/hl7v2/encode", h.EncodeMessage)
	g.POST("/hl7v2/terser", h.TerserMessage)
	g.POST("/hl7v2/validate", h.ValidateMessage)
	g.POST("/hl7v2/ack", h.AckMessage)
	g.POST("/hl7v2/generate/adt", h.GenerateADTHandler)
	g.POST("/hl7v2/generate/orm", h.GenerateORMHandler)
	g.POST("/hl7v2/generate/oru", h.GenerateORUHandler)
	g.GET("/hl7v2/versions", h.ListVersions)
}

// ParseResult is the response of POST /hl7v2/parse.
type ParseResult struct {
	Structure            string `json:"structure"`
	Version              string `json:"version"`
	MessageType          string `json:"messageType"`
	ControlID            string `json:"controlId"`
	SendingApplication   string `json:"sendingApplication,omitempty"`
	SendingFacility      string `json:"sendingFacility,omitempty"`
	ReceivingApplication string `json:"receivingApplication,omitempty"`
	ReceivingFacility    string `json:"receivingFacility,omitempty"`
	Timestamp            string `json:"timestamp,omitempty"`
	Tree                 Node   `json:"tree"`
}

// ParseMessage handles POST /hl7v2/parse. The body is raw ER7 text.
func (h *Handler) ParseMessage(c echo.Context) error {
	raw, err := readMessage(c)
	if err != nil {
		return err
	}
	hdr, err := parser.ParseHeader(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message header: "+err.Error())
	}
	msg, err := h.parse(raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ParseResult{
		Structure:            msg.Structure(),
		Version:              msg.Version(),
		MessageType:          hdr.MessageType(),
		ControlID:            hdr.ControlID,
		SendingApplication:   hdr.SendingApplication,
		SendingFacility:      hdr.SendingFacility,
		ReceivingApplication: hdr.ReceivingApplication,
		ReceivingFacility:    hdr.ReceivingFacility,
		Timestamp:            hdr.Timestamp,
		Tree:                 Tree(msg),
	})
}

type encodeRequest struct {
	Message string `json:"message" validate:"required"`
	// FieldSeparator and EncodingCharacters replace the delimiters when set.
	FieldSeparator     string `json:"fieldSeparator" validate:"omitempty,len=1"`
	EncodingCharacters string `json:"encodingCharacters" validate:"omitempty,len=4"`
}

// EncodeMessage handles POST /hl7v2/encode and returns ER7 text.
func (h *Handler) EncodeMessage(c echo.Context) error {
	var req encodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := h.parse(req.Message)
	if err != nil {
		return err
	}
	if req.FieldSeparator != "" || req.EncodingCharacters != "" {
		d := msg.Delimiters()
		sep := firstNonEmpty(req.FieldSeparator, string(d.Field))
		enc := firstNonEmpty(req.EncodingCharacters, d.EncodingCharacters())
		nd, err := encoding.FromMSH(sep[0], enc)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		msg.SetDelimiters(nd)
	}
	return h.encode(c, msg)
}

type terserRequest struct {
	Message string            `json:"message" validate:"required"`
	Get     []string          `json:"get" validate:"dive,hl7path"`
	Set     map[string]string `json:"set" validate:"dive,keys,hl7path,endkeys"`
}

// TerserResult is the response of POST /hl7v2/terser.
type TerserResult struct {
	Values map[string]string `json:"values,omitempty"`
	// Message is the encoded message after Set was applied.
	Message string `json:"message,omitempty"`
}

// TerserMessage handles POST /hl7v2/terser. Sets are applied in path order
// before gets, so a get observes the updated message.
func (h *Handler) TerserMessage(c echo.Context) error {
	var req terserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := h.parse(req.Message)
	if err != nil {
		return err
	}
	t := terser.New(msg)
	var res TerserResult
	if len(req.Set) > 0 {
		paths := make([]string, 0, len(req.Set))
		for p := range req.Set {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			if err := t.Set(p, req.Set[p]); err != nil {
				return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
			}
		}
		out, err := parser.Encode(msg)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		res.Message = out
	}
	if len(req.Get) > 0 {
		res.Values = make(map[string]string, len(req.Get))
		for _, p := range req.Get {
			v, err := t.Get(p)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			res.Values[p] = v
		}
	}
	return c.JSON(http.StatusOK, res)
}

// ValidateMessage handles POST /hl7v2/validate and returns the report. A
// message that fails validation is still a 200 response.
func (h *Handler) ValidateMessage(c echo.Context) error {
	raw, err := readMessage(c)
	if err != nil {
		return err
	}
	msg, err := h.parse(raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, validation.New(h.validation).Validate(msg))
}

type ackRequest struct {
	Message string `json:"message" validate:"required"`
	Code    string `json:"code" validate:"omitempty,oneof=AA AE AR CA CE CR"`
	Text    string `json:"text" validate:"max=80"`
	// Validate adds the validation errors of the message as ERR segments.
	Validate bool `json:"validate"`
}

// AckMessage handles POST /hl7v2/ack and returns the ACK as ER7 text. The
// code defaults to AA, or AE when validation finds errors.
func (h *Handler) AckMessage(c echo.Context) error {
	var req ackRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	hdr, err := parser.ParseHeader(req.Message)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid message header: "+err.Error())
	}
	code := AckCode(req.Code)
	var issues []validation.Issue
	if req.Validate {
		msg, err := h.parser.Parse(req.Message)
		if err != nil {
			c2, is := parseFailure(err)
			issues = append(issues, is)
			if code == "" {
				code = c2
			}
		} else if rep := validation.New(h.validation).Validate(msg); !rep.Valid {
			issues = rep.Errors()
			if code == "" {
				code = AckError
			}
		}
	}
	if code == "" {
		code = AckAccept
	}
	ack, err := h.ack.ACKFromHeader(hdr, code, req.Text, issues)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, "text/plain", []byte(ack))
}

type adtRequest struct {
	Event      string     `json:"event" validate:"required,len=3"`
	Patient    Resource   `json:"patient" validate:"required"`
	Encounter  Resource   `json:"encounter"`
	Conditions []Resource `json:"conditions"`
	// MergeParams is required for A40.
	MergeParams map[string]any `json:"mergeParams" validate:"required_if=Event A40"`
}

// GenerateADTHandler handles POST /hl7v2/generate/adt.
func (h *Handler) GenerateADTHandler(c echo.Context) error {
	var req adtRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(req.Event, "A40") {
		data, err = h.builder.GenerateADTA40(req.Patient, req.MergeParams)
	} else {
		data, err = h.builder.GenerateADT(strings.ToUpper(req.Event), req.Patient, req.Encounter, req.Conditions)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "failed to generate ADT message: "+err.Error())
	}
	return c.Blob(http.StatusOK, "text/plain", data)
}

type ormRequest struct {
	ServiceRequest Resource `json:"serviceRequest" validate:"required"`
	Patient        Resource `json:"patient" validate:"required"`
}

// GenerateORMHandler handles POST /hl7v2/generate/orm.
func (h *Handler) GenerateORMHandler(c echo.Context) error {
	var req ormRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	data, err := h.builder.GenerateORM(req.ServiceRequest, req.Patient)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "failed to generate ORM message: "+err.Error())
	}
	return c.Blob(http.StatusOK, "text/plain", data)
}

type oruRequest struct {
	DiagnosticReport Resource   `json:"diagnosticReport" validate:"required"`
	Observations     []Resource `json:"observations" validate:"required,min=1"`
	Patient          Resource   `json:"patient" validate:"required"`
}

// GenerateORUHandler handles POST /hl7v2/generate/oru.
func (h *Handler) GenerateORUHandler(c echo.Context) error {
	var req oruRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	data, err := h.builder.GenerateORU(req.DiagnosticReport, req.Observations, req.Patient)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "failed to generate ORU message: "+err.Error())
	}
	return c.Blob(http.StatusOK, "text/plain", data)
}

// VersionInfo describes one loaded HL7 version.
type VersionInfo struct {
	ID         string   `json:"id"`
	Extends    string   `json:"extends,omitempty"`
	Structures []string `json:"structures"`
	Segments   int      `json:"segments"`
}

// ListVersions handles GET /hl7v2/versions.
func (h *Handler) ListVersions(c echo.Context) error {
	reg := h.parser.Registry()
	var out []VersionInfo
	for _, id := range reg.Versions() {
		v, err := reg.Version(id)
		if err != nil {
			continue
		}
		out = append(out, VersionInfo{
			ID:         id,
			Extends:    v.Extends(),
			Structures: v.MessageStructures(),
			Segments:   len(v.SegmentNames()),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"default":  h.builder.Version(),
		"versions": out,
	})
}

// parse maps parser errors to HTTP errors: unsupported versions and
// structures are 422, everything else 400.
func (h *Handler) parse(raw string) (*model.Message, error) {
	msg, err := h.parser.Parse(raw)
	if err == nil {
		return msg, nil
	}
	if errors.Is(err, schema.ErrUnsupportedVersion) {
		return nil, echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return nil, echo.NewHTTPError(http.StatusBadRequest, "failed to parse HL7v2 message: "+err.Error())
}

func (h *Handler) encode(c echo.Context, msg *model.Message) error {
	out, err := parser.Encode(msg)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.Blob(http.StatusOK, "text/plain", []byte(out))
}

// readMessage returns the raw message from a text body, or from the
// "message" member of a JSON body.
func readMessage(c echo.Context) (string, error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var req struct {
			Message string `json:"message" validate:"required"`
		}
		if err := bindAndValidate(c, &req); err != nil {
			return "", err
		}
		return req.Message, nil
	}
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", echo.NewHTTPError(http.StatusBadRequest, "request body is empty")
	}
	return string(body), nil
}

func bindAndValidate(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	if err := validate.Struct(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}
	return nil
}

// validationMessage renders validator errors as "field tag" pairs.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := strings.ToLower(fe.Field()) + " is invalid"
		switch fe.Tag() {
		case "required", "required_if":
			msg = strings.ToLower(fe.Field()) + " is required"
		case "hl7path":
			msg = fmt.Sprintf("%q is not a terser path", fe.Value())
		case "oneof":
			msg = strings.ToLower(fe.Field()) + " must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
		}
		parts = append(parts, msg)
	}
	return strings.Join(parts, ", ")
}
