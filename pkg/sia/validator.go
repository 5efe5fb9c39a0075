// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

import "fmt"

// AnomalyType represents different kinds of suspicious event content
type AnomalyType int

const (
	ANOMALY_MISSING_ADDRESS AnomalyType = iota
	ANOMALY_UNEXPECTED_ADDRESS
	ANOMALY_INVALID_DATE
	ANOMALY_INVALID_TIME
	ANOMALY_UNKNOWN_ADDRESS
	ANOMALY_UNITS_WITHOUT_TYPE
)

func (t AnomalyType) String() string {
	switch t {
	case ANOMALY_MISSING_ADDRESS:
		return "MISSING_ADDRESS"
	case ANOMALY_UNEXPECTED_ADDRESS:
		return "UNEXPECTED_ADDRESS"
	case ANOMALY_INVALID_DATE:
		return "INVALID_DATE"
	case ANOMALY_INVALID_TIME:
		return "INVALID_TIME"
	case ANOMALY_UNKNOWN_ADDRESS:
		return "UNKNOWN_ADDRESS"
	case ANOMALY_UNITS_WITHOUT_TYPE:
		return "UNITS_WITHOUT_TYPE"
	default:
		return fmt.Sprintf("ANOMALY(%d)", int(t))
	}
}

// ValidationError represents an event that decoded but looks wrong
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateEvent checks a completed event for values a well-behaved panel
// would not send. Returns an empty slice if nothing looks wrong.
func ValidateEvent(e *Event) []ValidationError {
	errors := []ValidationError{}

	if e.Event != nil {
		errors = append(errors, validateAddress(e)...)
	}

	if d := e.Date; d != nil {
		if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
			errors = append(errors, ValidationError{
				Type:    ANOMALY_INVALID_DATE,
				Message: fmt.Sprintf("Invalid date %s", d),
				Details: map[string]interface{}{"month": d.Month, "day": d.Day, "year": d.Year},
			})
		}
	}

	if t := e.Time; t != nil {
		if t.Hour > 23 || t.Minute > 59 || t.Second > 59 {
			errors = append(errors, ValidationError{
				Type:    ANOMALY_INVALID_TIME,
				Message: fmt.Sprintf("Invalid time %s", t),
				Details: map[string]interface{}{"hour": t.Hour, "minute": t.Minute, "second": t.Second},
			})
		}
	}

	if e.Units != nil && e.UnitsType == "" {
		errors = append(errors, ValidationError{
			Type:    ANOMALY_UNITS_WITHOUT_TYPE,
			Message: fmt.Sprintf("Units %d reported without a unit type", *e.Units),
			Details: map[string]interface{}{"units": *e.Units},
		})
	}

	return errors
}

func validateAddress(e *Event) []ValidationError {
	code := e.Event.Code

	if e.Address == nil {
		if e.Event.Address == AddressUnused {
			return nil
		}
		return []ValidationError{{
			Type:    ANOMALY_MISSING_ADDRESS,
			Message: fmt.Sprintf("%s expects a %s number but none was sent", code, e.AddressType),
			Details: map[string]interface{}{"code": code, "address_type": e.AddressType},
		}}
	}

	if e.Event.Address == AddressUnused {
		return []ValidationError{{
			Type:    ANOMALY_UNEXPECTED_ADDRESS,
			Message: fmt.Sprintf("%s carries address %d but defines no address field", code, *e.Address),
			Details: map[string]interface{}{"code": code, "address": *e.Address},
		}}
	}

	if *e.Address == UnknownAddress {
		return []ValidationError{{
			Type:    ANOMALY_UNKNOWN_ADDRESS,
			Message: fmt.Sprintf("%s reported %s 0 (unknown)", code, e.AddressType),
			Details: map[string]interface{}{"code": code, "address_type": e.AddressType},
		}}
	}

	return nil
}
