package hl7v2

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ehr/hl7engine/internal/platform/hl7v2/encoding"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/model"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/parser"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/schema"
	"github.com/ehr/hl7engine/internal/platform/hl7v2/terser"
)

// Resource is a decoded FHIR resource.
type Resource = map[string]any

// Builder generates v2 messages from FHIR resources. Segments are located
// with terser search paths, so the same code fills PID whether the
// structure keeps it at the root (ADT_A01) or inside a group (ORM_O01).
type Builder struct {
	version *schema.Version

	SendingApplication   string
	SendingFacility      string
	ReceivingApplication string
	ReceivingFacility    string
	ProcessingID         string

	now   func() time.Time
	newID func() string
}

// NewBuilder creates a builder for version. A nil registry uses the
// built-in tables.
func NewBuilder(registry *schema.Registry, version string) (*Builder, error) {
	if registry == nil {
		registry = schema.Default()
	}
	if version == "" {
		version = "2.5.1"
	}
	v, err := registry.Version(version)
	if err != nil {
		return nil, fmt.Errorf("hl7v2: builder: %w", err)
	}
	return &Builder{
		version:              v,
		SendingApplication:   "EHR",
		SendingFacility:      "EHRFac",
		ReceivingApplication: "Destination",
		ReceivingFacility:    "DestFac",
		ProcessingID:         "P",
		now:                  func() time.Time { return time.Now().UTC() },
		newID:                NewControlID,
	}, nil
}

// Version returns the HL7 version the builder writes.
func (b *Builder) Version() string { return b.version.ID() }

// writer sets terser paths and keeps the first error. Empty values are
// skipped so absent FHIR elements leave the field empty.
type writer struct {
	t   *terser.Terser
	err error
}

func (w *writer) set(path, value string) {
	if w.err != nil || value == "" {
		return
	}
	if err := w.t.Set(path, value); err != nil {
		w.err = err
	}
}

func (b *Builder) start(code, trigger string) (*model.Message, *writer) {
	structure := b.version.ResolveStructure(code, trigger, "")
	msg := b.version.NewMessage(structure)
	w := &writer{t: terser.New(msg)}
	w.set("/MSH-3", b.SendingApplication)
	w.set("/MSH-4", b.SendingFacility)
	w.set("/MSH-5", b.ReceivingApplication)
	w.set("/MSH-6", b.ReceivingFacility)
	w.set("/MSH-7", b.now().Format("20060102150405"))
	w.set("/MSH-9-1", code)
	w.set("/MSH-9-2", trigger)
	if !msg.IsGeneric() {
		w.set("/MSH-9-3", structure)
	}
	w.set("/MSH-10", b.newID())
	w.set("/MSH-11", b.ProcessingID)
	w.set("/MSH-12", b.version.ID())
	msg.SetDelimiters(encoding.Default())
	return msg, w
}

func (b *Builder) finish(msg *model.Message, w *writer) ([]byte, error) {
	if w.err != nil {
		return nil, fmt.Errorf("hl7v2: build %s: %w", msg.Structure(), w.err)
	}
	out, err := parser.Encode(msg)
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// GenerateADT generates an ADT message. event is the ADT event code: "A01"
// (admit), "A02" (transfer), "A03" (discharge), "A04" (register), "A08"
// (update). Each condition becomes a DG1 segment when the structure has
// one.
func (b *Builder) GenerateADT(event string, patient, encounter Resource, conditions []Resource) ([]byte, error) {
	if patient == nil {
		return nil, fmt.Errorf("hl7v2: patient resource is required")
	}
	msg, w := b.start("ADT", event)
	b.evn(w, event)
	b.pid(w, patient)
	b.pv1(w, encounter)
	if msg.ChildIndex("DG1") >= 0 {
		for i, c := range conditions {
			b.dg1(w, i, c)
		}
	}
	return b.finish(msg, w)
}

// GenerateADTA40 generates an ADT^A40 (merge patient) message. patient is
// the surviving record; merge holds "priorPatientID" and optionally
// "priorAccountID" and "priorVisitID".
func (b *Builder) GenerateADTA40(patient Resource, merge map[string]any) ([]byte, error) {
	if patient == nil {
		return nil, fmt.Errorf("hl7v2: patient resource is required")
	}
	if merge == nil {
		return nil, fmt.Errorf("hl7v2: merge parameters are required")
	}
	prior, _ := getString(merge, "priorPatientID")
	if prior == "" {
		return nil, fmt.Errorf("hl7v2: priorPatientID is required")
	}
	msg, w := b.start("ADT", "A40")
	b.evn(w, "A40")
	b.pid(w, patient)
	w.set("/.MRG-1-1", prior)
	if acct, ok := getString(merge, "priorAccountID"); ok {
		w.set("/.MRG-3-1", acct)
	}
	if visit, ok := getString(merge, "priorVisitID"); ok {
		w.set("/.MRG-5-1", visit)
	}
	return b.finish(msg, w)
}

// GenerateORM generates an ORM^O01 order message from a ServiceRequest.
func (b *Builder) GenerateORM(serviceRequest, patient Resource) ([]byte, error) {
	if patient == nil {
		return nil, fmt.Errorf("hl7v2: patient resource is required")
	}
	msg, w := b.start("ORM", "O01")
	b.pid(w, patient)

	id, _ := getString(serviceRequest, "id")
	authored := ""
	if s, ok := getString(serviceRequest, "authoredOn"); ok {
		authored = convertFHIRDateTimeToHL7(s)
	}
	w.set("/.ORC-1", "NW")
	w.set("/.ORC-2-1", id)
	w.set("/.ORC-5", mapRequestStatus(stringOr(serviceRequest, "status")))
	w.set("/.ORC-9", authored)

	w.set("/.OBR-1", "1")
	w.set("/.OBR-2-1", id)
	b.coding(w, "/.OBR-4", serviceRequest, "code")
	w.set("/.OBR-6", authored)
	if req, ok := getNestedMap(serviceRequest, "requester"); ok {
		b.reference(w, "/.OBR-16", req)
	}
	return b.finish(msg, w)
}

// GenerateORU generates an ORU^R01 result message from a DiagnosticReport
// and its Observations.
func (b *Builder) GenerateORU(report Resource, observations []Resource, patient Resource) ([]byte, error) {
	if patient == nil {
		return nil, fmt.Errorf("hl7v2: patient resource is required")
	}
	msg, w := b.start("ORU", "R01")
	b.pid(w, patient)

	w.set("/.OBR-1", "1")
	if id, ok := getString(report, "id"); ok {
		w.set("/.OBR-3-1", id)
	}
	b.coding(w, "/.OBR-4", report, "code")
	if dt, ok := getString(report, "effectiveDateTime"); ok {
		w.set("/.OBR-7", convertFHIRDateTimeToHL7(dt))
	}
	if issued, ok := getString(report, "issued"); ok {
		w.set("/.OBR-22", convertFHIRDateTimeToHL7(issued))
	}
	if s, ok := getString(report, "status"); ok {
		w.set("/.OBR-25", mapObservationStatus(s))
	}

	for i, obs := range observations {
		b.obx(w, fmt.Sprintf("/.ORDER_OBSERVATION/OBSERVATION(%d)/OBX", i), i+1, obs)
	}
	return b.finish(msg, w)
}

func (b *Builder) evn(w *writer, event string) {
	w.set("/.EVN-1", event)
	w.set("/.EVN-2", b.now().Format("20060102150405"))
}

// pid fills PID from a Patient. Every identifier, name and phone number
// becomes a repetition.
func (b *Builder) pid(w *writer, patient Resource) {
	w.set("/.PID-1", "1")
	ids, _ := getArray(patient, "identifier")
	for i, raw := range ids {
		id, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		f := fmt.Sprintf("/.PID-3(%d)", i)
		w.set(f+"-1", stringOr(id, "value"))
		if typ, ok := getNestedMap(id, "type"); ok {
			w.set(f+"-5", firstCoding(typ).code)
		}
	}

	names, _ := getArray(patient, "name")
	for i, raw := range names {
		name, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		f := fmt.Sprintf("/.PID-5(%d)", i)
		w.set(f+"-1", stringOr(name, "family"))
		givens, _ := getArray(name, "given")
		for j, g := range givens {
			if s, ok := g.(string); ok && j < 2 {
				w.set(f+"-"+strconv.Itoa(j+2), s)
			}
		}
		if use, ok := getString(name, "use"); ok {
			w.set(f+"-7", mapNameUse(use))
		}
	}

	if birthDate, ok := getString(patient, "birthDate"); ok {
		w.set("/.PID-7", strings.ReplaceAll(birthDate, "-", ""))
	}
	if g, ok := getString(patient, "gender"); ok {
		w.set("/.PID-8", mapFHIRGender(g))
	}
	if addrs, ok := getArray(patient, "address"); ok && len(addrs) > 0 {
		if addr, ok := addrs[0].(map[string]any); ok {
			b.address(w, "/.PID-11", addr)
		}
	}
	phones := 0
	telecoms, _ := getArray(patient, "telecom")
	for _, raw := range telecoms {
		t, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if sys, _ := getString(t, "system"); sys != "" && sys != "phone" {
			continue
		}
		w.set(fmt.Sprintf("/.PID-13(%d)-1", phones), stringOr(t, "value"))
		phones++
	}
}

// address writes street^other^city^state^zip^country.
func (b *Builder) address(w *writer, field string, addr map[string]any) {
	if lines, ok := getArray(addr, "line"); ok && len(lines) > 0 {
		if line, ok := lines[0].(string); ok {
			w.set(field+"-1", line)
		}
		if len(lines) > 1 {
			if line, ok := lines[1].(string); ok {
				w.set(field+"-2", line)
			}
		}
	}
	w.set(field+"-3", stringOr(addr, "city"))
	w.set(field+"-4", stringOr(addr, "state"))
	w.set(field+"-5", stringOr(addr, "postalCode"))
	w.set(field+"-6", stringOr(addr, "country"))
}

func (b *Builder) pv1(w *writer, encounter Resource) {
	w.set("/.PV1-1", "1")
	if encounter == nil {
		return
	}
	if classObj, ok := getNestedMap(encounter, "class"); ok {
		w.set("/.PV1-2", mapEncounterClass(stringOr(classObj, "code")))
	}
	if locs, ok := getArray(encounter, "location"); ok && len(locs) > 0 {
		if loc, ok := locs[0].(map[string]any); ok {
			if ref, ok := getNestedMap(loc, "location"); ok {
				w.set("/.PV1-3-1", stringOr(ref, "display"))
			}
		}
	}
	if participants, ok := getArray(encounter, "participant"); ok && len(participants) > 0 {
		if p, ok := participants[0].(map[string]any); ok {
			if ind, ok := getNestedMap(p, "individual"); ok {
				b.reference(w, "/.PV1-7", ind)
			}
		}
	}
	w.set("/.PV1-19-1", stringOr(encounter, "id"))
	if period, ok := getNestedMap(encounter, "period"); ok {
		if s, ok := getString(period, "start"); ok {
			w.set("/.PV1-44", convertFHIRDateTimeToHL7(s))
		}
		if e, ok := getString(period, "end"); ok {
			w.set("/.PV1-45", convertFHIRDateTimeToHL7(e))
		}
	}
}

// dg1 writes one diagnosis from a Condition.
func (b *Builder) dg1(w *writer, rep int, condition Resource) {
	seg := fmt.Sprintf("/.DG1(%d)", rep)
	w.set(seg+"-1", strconv.Itoa(rep+1))
	b.coding(w, seg+"-3", condition, "code")
	if recorded, ok := getString(condition, "recordedDate"); ok {
		w.set(seg+"-5", convertFHIRDateTimeToHL7(recorded))
	}
	status := ""
	if vs, ok := getNestedMap(condition, "verificationStatus"); ok {
		status = firstCoding(vs).code
	}
	w.set(seg+"-6", mapDiagnosisType(status))
}

func (b *Builder) obx(w *writer, seg string, setID int, obs Resource) {
	w.set(seg+"-1", strconv.Itoa(setID))
	b.coding(w, seg+"-3", obs, "code")

	switch {
	case obs["valueQuantity"] != nil:
		vq, _ := getNestedMap(obs, "valueQuantity")
		w.set(seg+"-2", "NM")
		w.set(seg+"-5", number(vq["value"]))
		w.set(seg+"-6-1", stringOr(vq, "unit"))
	case obs["valueCodeableConcept"] != nil:
		w.set(seg+"-2", "CE")
		b.coding(w, seg+"-5", obs, "valueCodeableConcept")
	case obs["valueString"] != nil:
		w.set(seg+"-2", "ST")
		w.set(seg+"-5", stringOr(obs, "valueString"))
	}

	if ranges, ok := getArray(obs, "referenceRange"); ok && len(ranges) > 0 {
		if rr, ok := ranges[0].(map[string]any); ok {
			low, high := "", ""
			if lowObj, ok := getNestedMap(rr, "low"); ok {
				low = number(lowObj["value"])
			}
			if highObj, ok := getNestedMap(rr, "high"); ok {
				high = number(highObj["value"])
			}
			if low != "" || high != "" {
				w.set(seg+"-7", low+"-"+high)
			}
		}
	}
	if interps, ok := getArray(obs, "interpretation"); ok && len(interps) > 0 {
		if cc, ok := interps[0].(map[string]any); ok {
			w.set(seg+"-8", firstCoding(cc).code)
		}
	}
	status := "F"
	if s, ok := getString(obs, "status"); ok {
		status = mapObservationStatus(s)
	}
	w.set(seg+"-11", status)
	if dt, ok := getString(obs, "effectiveDateTime"); ok {
		w.set(seg+"-14", convertFHIRDateTimeToHL7(dt))
	}
}

// coding writes the first coding of r[key] as code^display^system.
func (b *Builder) coding(w *writer, field string, r Resource, key string) {
	cc, ok := getNestedMap(r, key)
	if !ok {
		return
	}
	c := firstCoding(cc)
	if c.code == "" {
		w.set(field+"-2", stringOr(cc, "text"))
		return
	}
	w.set(field+"-1", c.code)
	w.set(field+"-2", firstNonEmpty(c.display, stringOr(cc, "text")))
	w.set(field+"-3", mapFHIRSystemToShort(c.system))
}

// reference writes a FHIR reference as id^display.
func (b *Builder) reference(w *writer, field string, ref map[string]any) {
	if r, ok := getString(ref, "reference"); ok {
		w.set(field+"-1", r[strings.LastIndexByte(r, '/')+1:])
	}
	w.set(field+"-2", stringOr(ref, "display"))
}

type coding struct{ code, display, system string }

func firstCoding(cc map[string]any) coding {
	codings, ok := getArray(cc, "coding")
	if !ok || len(codings) == 0 {
		return coding{}
	}
	c, ok := codings[0].(map[string]any)
	if !ok {
		return coding{}
	}
	return coding{stringOr(c, "code"), stringOr(c, "display"), stringOr(c, "system")}
}

// number renders a decoded JSON number without a trailing ".0".
func number(v any) string {
	switch n := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		return n
	}
	return fmt.Sprintf("%v", v)
}
