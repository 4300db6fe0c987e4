package hl7v2

import (
	"strings"
	"time"
)

func getString(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok && s != ""
}

func stringOr(m map[string]any, key string) string {
	s, _ := getString(m, key)
	return s
}

func getArray(m map[string]any, key string) ([]any, bool) {
	arr, ok := m[key].([]any)
	return arr, ok
}

func getNestedMap(m map[string]any, key string) (map[string]any, bool) {
	nested, ok := m[key].(map[string]any)
	return nested, ok
}

// mapFHIRGender converts a FHIR gender to HL7 administrative sex (table 0001).
func mapFHIRGender(gender string) string {
	switch strings.ToLower(gender) {
	case "male":
		return "M"
	case "female":
		return "F"
	case "other":
		return "O"
	}
	return "U"
}

// mapEncounterClass maps a FHIR v3 ActCode class to patient class (table 0004).
func mapEncounterClass(code string) string {
	switch strings.ToUpper(code) {
	case "IMP", "ACUTE", "NONAC":
		return "I"
	case "AMB", "VR", "HH":
		return "O"
	case "EMER":
		return "E"
	case "PRENC":
		return "P"
	case "OBSENC":
		return "B"
	}
	return code
}

// mapNameUse maps a FHIR HumanName use to a name type code (table 0200).
func mapNameUse(use string) string {
	switch use {
	case "official", "usual":
		return "L"
	case "nickname":
		return "N"
	case "maiden":
		return "M"
	case "anonymous":
		return "S"
	}
	return ""
}

func mapFHIRSystemToShort(system string) string {
	switch system {
	case "http://loinc.org":
		return "LN"
	case "http://snomed.info/sct":
		return "SCT"
	case "http://www.nlm.nih.gov/research/umls/rxnorm":
		return "RXNORM"
	case "http://hl7.org/fhir/sid/icd-10-cm":
		return "I10"
	case "http://hl7.org/fhir/sid/icd-9-cm":
		return "I9CDX"
	case "http://terminology.hl7.org/CodeSystem/v3-ObservationInterpretation":
		return "HL70078"
	}
	return system
}

// mapObservationStatus converts a FHIR status to a result status (table 0085).
func mapObservationStatus(status string) string {
	switch status {
	case "preliminary", "partial":
		return "P"
	case "cancelled", "entered-in-error":
		return "X"
	case "corrected", "amended":
		return "C"
	case "registered":
		return "I"
	}
	return "F"
}

// mapRequestStatus converts a ServiceRequest status to an order status
// (table 0038).
func mapRequestStatus(status string) string {
	switch status {
	case "active":
		return "IP"
	case "completed":
		return "CM"
	case "revoked", "entered-in-error":
		return "CA"
	case "on-hold":
		return "HD"
	case "":
		return ""
	}
	return "SC"
}

// mapDiagnosisType maps a Condition verification status to a diagnosis type
// (table 0052).
func mapDiagnosisType(status string) string {
	if status == "confirmed" {
		return "F"
	}
	return "W"
}

var fhirLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// convertFHIRDateTimeToHL7 converts a FHIR date or dateTime to an HL7 DTM.
// Date-only values keep their precision; offsets other than UTC are kept.
func convertFHIRDateTimeToHL7(dt string) string {
	switch len(dt) {
	case 4, 7, 10:
		return strings.ReplaceAll(dt, "-", "")
	}
	for _, layout := range fhirLayouts {
		t, err := time.Parse(layout, dt)
		if err != nil {
			continue
		}
		if _, off := t.Zone(); off != 0 {
			return t.Format("20060102150405-0700")
		}
		return t.Format("20060102150405")
	}
	return strings.NewReplacer("-", "", "T", "", ":", "", "Z", "").Replace(dt)
}
