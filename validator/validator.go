// Package validator applies the ViSTA format rules to loaded vehicle and
// actor tables. Validation findings are ordinary data: each function
// returns error and warning message lists, and a table is valid when its
// error list is empty. Nothing here mutates the table.
package validator

import (
	"fmt"
	"math"
	"strings"

	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/tabular"
)

// VehicleRequiredColumns are the columns every VUT_status file must have.
var VehicleRequiredColumns = []string{
	"Time",
	"Step_number",
	"VUT_pos_lat",
	"VUT_pos_lng",
	"VUT_heading",
	"VUT_vel_abs",
}

// ActorRequiredColumns are the columns every Environment_actors_true file
// must have.
var ActorRequiredColumns = []string{
	"Time",
	"Step_number",
	"Actor_Id",
	"Actor_type",
	"Actor_pos_true_lat",
	"Actor_pos_true_lng",
	"Actor_heading_true",
}

// ValidateVehicle checks a VUT_status table for required columns and
// value ranges. Missing required columns produce a single aggregated
// error and stop further checks, since the value rules cannot run
// without their columns.
func ValidateVehicle(t *tabular.Table) (errors, warnings []string) {
	errors = []string{}
	warnings = []string{}

	if missing := missingColumns(t, VehicleRequiredColumns); len(missing) > 0 {
		errors = append(errors, "Missing required columns: "+strings.Join(missing, ", "))
		return errors, warnings
	}

	if outOfRange(t, "VUT_pos_lat", -90, 90) {
		errors = append(errors, "VUT_pos_lat contains values outside the valid range (-90 to 90)")
	}
	if outOfRange(t, "VUT_pos_lng", -180, 360) {
		errors = append(errors, "VUT_pos_lng contains values outside the valid range (-180 to 360)")
	}
	if outOfRange(t, "VUT_heading", 0, 360) {
		errors = append(errors, "VUT_heading contains values outside the valid range (0 to 360)")
	}
	if outOfRange(t, "VUT_vel_abs", 0, math.Inf(1)) {
		errors = append(errors, "VUT_vel_abs contains negative values")
	}
	if !nonDecreasing(t, "Time") {
		errors = append(errors, "Time column is not monotonically non-decreasing")
	}

	// Gaps in position/heading are tolerated (rendered as 0.0 defaults)
	// but worth flagging.
	for _, name := range []string{"VUT_pos_lat", "VUT_pos_lng", "VUT_heading"} {
		if n := missingCount(t, name); n > 0 {
			warnings = append(warnings, fmt.Sprintf("%s has %d missing value(s)", name, n))
		}
	}

	return errors, warnings
}

// ValidateActors checks an Environment_actors_true table for required
// columns and value ranges, with the same short-circuit order as
// ValidateVehicle.
func ValidateActors(t *tabular.Table) (errors, warnings []string) {
	errors = []string{}
	warnings = []string{}

	if missing := missingColumns(t, ActorRequiredColumns); len(missing) > 0 {
		errors = append(errors, "Missing required columns: "+strings.Join(missing, ", "))
		return errors, warnings
	}

	if outOfRange(t, "Actor_pos_true_lat", -90, 90) {
		errors = append(errors, "Actor_pos_true_lat contains values outside the valid range (-90 to 90)")
	}
	if outOfRange(t, "Actor_pos_true_lng", -180, 360) {
		errors = append(errors, "Actor_pos_true_lng contains values outside the valid range (-180 to 360)")
	}
	if outOfRange(t, "Actor_heading_true", 0, 360) {
		errors = append(errors, "Actor_heading_true contains values outside the valid range (0 to 360)")
	}

	switch checkIntegral(t, "Actor_type") {
	case integralNonNumeric:
		errors = append(errors, "Actor_type contains non-numeric values")
	case integralFractional:
		errors = append(errors, "Actor_type contains non-integer values")
	}

	return errors, warnings
}

// missingColumns returns the required column names absent from the
// table, in required order.
func missingColumns(t *tabular.Table, required []string) []string {
	var missing []string
	for _, name := range required {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// outOfRange reports whether any non-missing numeric value in the column
// falls outside [min, max]. A column with no numeric values never
// violates a range rule.
func outOfRange(t *tabular.Table, name string, min, max float64) bool {
	c, ok := t.Column(name)
	if !ok {
		return false
	}
	for _, v := range c.Values {
		if n, ok := v.Float(); ok && (n < min || n > max) {
			return true
		}
	}
	return false
}

// nonDecreasing reports whether the column's non-missing numeric values
// never decrease in row order. Vacuously true for absent or empty
// columns.
func nonDecreasing(t *tabular.Table, name string) bool {
	c, ok := t.Column(name)
	if !ok {
		return true
	}
	prev := math.Inf(-1)
	for _, v := range c.Values {
		n, ok := v.Float()
		if !ok {
			continue
		}
		if n < prev {
			return false
		}
		prev = n
	}
	return true
}

// missingCount returns how many cells of the column are missing, or 0
// when the column is absent.
func missingCount(t *tabular.Table, name string) int {
	c, ok := t.Column(name)
	if !ok {
		return 0
	}
	n := 0
	for _, v := range c.Values {
		if v.Missing() {
			n++
		}
	}
	return n
}

type integralResult int

const (
	integralOK integralResult = iota
	integralFractional
	integralNonNumeric
)

// checkIntegral classifies a column's non-missing values: any text cell
// makes the whole column non-numeric (that finding dominates), otherwise
// any fractional number makes it fractional.
func checkIntegral(t *tabular.Table, name string) integralResult {
	c, ok := t.Column(name)
	if !ok {
		return integralOK
	}
	result := integralOK
	for _, v := range c.Values {
		switch v.Kind {
		case tabular.KindText:
			return integralNonNumeric
		case tabular.KindNumber:
			if v.Num != math.Trunc(v.Num) {
				result = integralFractional
			}
		}
	}
	return result
}
