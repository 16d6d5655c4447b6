// Package telemetry implements the canonical telemetry model and the
// collection core: a declarative registry mapping canonical fields to
// extraction logic and prioritized data sources, and a dispatcher that
// executes per-field extraction with failure isolation and merges the
// results into one snapshot.
package telemetry

import "fmt"

// Field identifies one dialect-independent telemetry quantity.
type Field string

// The canonical field set. Fixed and shared across all dialects; not every
// dialect declares every field.
const (
	FieldMAC              Field = "mac"
	FieldAPIVersion       Field = "api_version"
	FieldFirmwareVersion  Field = "fw_version"
	FieldHostname         Field = "hostname"
	FieldHashrate         Field = "hashrate"
	FieldExpectedHashrate Field = "expected_hashrate"
	FieldHashboards       Field = "hashboards"
	FieldEnvironmentTemp  Field = "environment_temp"
	FieldWattage          Field = "wattage"
	FieldWattageLimit     Field = "wattage_limit"
	FieldFans             Field = "fans"
	FieldFanPSU           Field = "fan_psu"
	FieldErrors           Field = "errors"
	FieldFaultLight       Field = "fault_light"
	FieldIsMining         Field = "is_mining"
	FieldUptime           Field = "uptime"
	FieldConfig           Field = "config"
)

// AllFields returns every canonical field. Dialects pass the result to
// Collect to request a full snapshot; fields the dialect does not declare
// must be filtered by the caller first (see Registry.Fields).
func AllFields() []Field {
	return []Field{
		FieldMAC,
		FieldAPIVersion,
		FieldFirmwareVersion,
		FieldHostname,
		FieldHashrate,
		FieldExpectedHashrate,
		FieldHashboards,
		FieldEnvironmentTemp,
		FieldWattage,
		FieldWattageLimit,
		FieldFans,
		FieldFanPSU,
		FieldErrors,
		FieldFaultLight,
		FieldIsMining,
		FieldUptime,
		FieldConfig,
	}
}

// UnknownFieldError reports a request for a field the active dialect's
// registry does not declare. Unlike per-field data problems, which are
// absorbed into the report, this signals a programming mistake and is the
// one error Collect returns.
type UnknownFieldError struct {
	Field Field
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("telemetry: field %q not declared by this dialect", e.Field)
}
