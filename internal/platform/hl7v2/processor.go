package hl7v2

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ehr/hl7engine/internal/platform/forward"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/schema"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/validation"
	"github.com/ehr/hl7engine/internal/platform/telemetry"
)

// Journal stores received messages and answers duplicate checks.
type Journal interface {
	// Seen reports whether a message from sendingApp with controlID was
	// already accepted.
	Seen(ctx context.Context, sendingApp, controlID string) (bool, error)
	Record(ctx context.Context, e forward.Event, ackCode string) error
}

// ProcessorOptions configure a Processor. Zero values disable the
// corresponding step.
type ProcessorOptions struct {
	Validate   bool
	Validation validation.Options
	Journal    Journal
	Publisher  forward.Publisher
	Metrics    *telemetry.Metrics
	Logger     zerolog.Logger
}

// Processor runs inbound messages through parse, validate, deduplicate,
// forward and acknowledge.
type Processor struct {
	parser    *parser.Parser
	validator *validation.Validator
	ack       *Acknowledger
	journal   Journal
	publisher forward.Publisher
	metrics   *telemetry.Metrics
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewProcessor creates a processor.
func NewProcessor(p *parser.Parser, ack *Acknowledger, opts ProcessorOptions) *Processor {
	proc := &Processor{
		parser:    p,
		ack:       ack,
		journal:   opts.Journal,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger.With().Str("component", "hl7-processor").Logger(),
		tracer:    otel.Tracer("hl7engine/hl7v2"),
		now:       time.Now,
	}
	if opts.Validate {
		proc.validator = validation.New(opts.Validation)
	}
	if proc.publisher == nil {
		proc.publisher = forward.Nop{}
	}
	return proc
}

// Result describes how one message was handled.
type Result struct {
	Raw       string
	Header    *parser.Header
	Message   *model.Message
	Report    *validation.Report
	Event     forward.Event
	Code      AckCode
	Issues    []validation.Issue
	Duplicate bool
	// ACK is the encoded acknowledgment, empty when MSH-16 suppresses it.
	ACK string
}

// Process handles one message. The returned error is set only when no
// acknowledgment could be built; rejections are reported through the
// result code.
func (p *Processor) Process(ctx context.Context, raw string) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "hl7.process")
	defer span.End()

	res := &Result{Raw: raw}
	h, err := parser.ParseHeader(raw)
	if err != nil {
		res.Code = AckReject
		res.Issues = []validation.Issue{internalIssue(err)}
		return p.finish(ctx, span, res, "unreadable message header")
	}
	res.Header = h
	span.SetAttributes(
		attribute.String("hl7.message_type", h.MessageType()),
		attribute.String("hl7.control_id", h.ControlID),
		attribute.String("hl7.version", h.Version),
	)
	p.metrics.MessageReceived(h.MessageType())

	start := time.Now()
	msg, err := p.parser.Parse(raw)
	p.metrics.ObserveParse(time.Since(start))
	if err != nil {
		code, issue := parseFailure(err)
		res.Code, res.Issues = code, []validation.Issue{issue}
		return p.finish(ctx, span, res, "message could not be parsed")
	}
	res.Message = msg
	res.Event = forward.NewEvent(uuid.NewString(), h, msg.Structure(), raw, p.now())

	if p.validator != nil {
		rep := p.validator.Validate(msg)
		res.Report = rep
		if !rep.Valid {
			res.Code, res.Issues = AckError, rep.Errors()
			if rep.Has(validation.CodeUnsupportedMessage) {
				res.Code = AckReject
			}
			return p.finish(ctx, span, res, "message failed validation")
		}
	}

	if p.journal != nil {
		dup, err := p.journal.Seen(ctx, h.SendingApplication, h.ControlID)
		if err != nil {
			res.Code, res.Issues = AckError, []validation.Issue{internalIssue(err)}
			return p.finish(ctx, span, res, "message log unavailable")
		}
		if dup {
			res.Code, res.Duplicate = AckAccept, true
			return p.finish(ctx, span, res, "duplicate message")
		}
	}

	if err := p.publisher.Publish(ctx, res.Event); err != nil {
		p.metrics.ForwardFailed("publisher")
		p.logger.Error().Err(err).Str("control_id", h.ControlID).Msg("forward failed")
		res.Code, res.Issues = AckError, []validation.Issue{internalIssue(err)}
		return p.finish(ctx, span, res, "message could not be forwarded")
	}
	res.Code = AckAccept
	return p.finish(ctx, span, res, "")
}

func (p *Processor) finish(ctx context.Context, span trace.Span, res *Result, text string) (*Result, error) {
	span.SetAttributes(attribute.String("hl7.ack_code", string(res.Code)))
	if !res.Code.Accepted() {
		span.SetStatus(codes.Error, text)
	}

	var msgType string
	if h := res.Header; h != nil {
		msgType = h.MessageType()
		if res.Event.ID == "" {
			res.Event = forward.NewEvent(uuid.NewString(), h, "", res.Raw, p.now())
		}
		if p.journal != nil && !res.Duplicate {
			if err := p.journal.Record(ctx, res.Event, string(res.Code)); err != nil {
				p.logger.Error().Err(err).Str("control_id", h.ControlID).Msg("record message")
			}
		}
	}
	p.metrics.MessageAcked(msgType, string(res.Code))

	ev := p.logger.Info()
	if !res.Code.Accepted() {
		ev = p.logger.Warn().Int("issues", len(res.Issues))
	}
	ev.Str("type", msgType).Str("ack", string(res.Code)).Bool("duplicate", res.Duplicate).Msg(firstNonEmpty(text, "message accepted"))

	if res.Header != nil && !wantsAck(res.Header.AppAckType, res.Code.Accepted()) {
		return res, nil
	}
	ack, err := p.ack.ACKFromHeader(res.Header, res.Code, text, res.Issues)
	if err != nil {
		span.RecordError(err)
		return res, err
	}
	res.ACK = ack
	return res, nil
}

// ServeMLLP processes one framed payload and returns the acknowledgment to
// write back, nil when none is due.
func (p *Processor) ServeMLLP(ctx context.Context, payload []byte) ([]byte, error) {
	res, err := p.Process(ctx, string(payload))
	if err != nil {
		return nil, err
	}
	if res.ACK == "" {
		return nil, nil
	}
	return []byte(res.ACK), nil
}

// wantsAck applies the MSH-16 application acknowledgment type (HL7 table
// 0155). An empty value means always.
func wantsAck(mode string, accepted bool) bool {
	switch mode {
	case "NE":
		return false
	case "ER":
		return !accepted
	case "SU":
		return accepted
	}
	return true
}

// parseFailure maps a parse error to an acknowledgment code and issue.
func parseFailure(err error) (AckCode, validation.Issue) {
	is := validation.Issue{Severity: validation.SeverityError, Message: err.Error()}
	switch {
	case errors.Is(err, schema.ErrUnsupportedVersion):
		is.Code, is.Segment, is.Sequence, is.Field = validation.CodeUnsupportedVersion, "MSH", 1, 12
		return AckReject, is
	case errors.Is(err, parser.ErrUnexpectedSegment), errors.Is(err, parser.ErrInvalidSegmentName):
		is.Code = validation.CodeSequenceError
		return AckError, is
	}
	is.Code = validation.CodeInternalError
	return AckError, is
}

func internalIssue(err error) validation.Issue {
	return validation.Issue{Severity: validation.SeverityError, Code: validation.CodeInternalError, Message: err.Error()}
}
