// Package v25 holds typed wrappers for HL7 v2.5 message structures,
// generated from the schema tables by hl7-gen.
package v25

//go:generate go run ../../../../../cmd/hl7-gen --version 2.5 --package v25 --out . ADT_A01 ORU_R01
