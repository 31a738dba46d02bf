// Package processor implements the evaluation pipeline for one
// simulation run: load the VUT and actor tables, derive the computed
// columns, validate both, and shape the trajectory arrays for the map.
//
// Pipeline overview:
//
//	Evaluate()
//	├── LoadVehicleTable()   decode VUT_status, derive t / vel_ms / vel_kmh
//	├── validator.ValidateVehicle()
//	├── LoadActorTable()     decode Environment_actors_true, rebuild Actor_vel_abs
//	├── validator.ValidateActors()
//	└── build channel + trajectory arrays
package processor

import (
	"fmt"
	"log"
	"math"

	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/catalog"
	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/tabular"
	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/validator"
)

// SchemaError reports a table that parsed fine but lacks a column a
// normalization step cannot do without. Unlike a validation finding it
// aborts the pipeline for that table.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("required column %q is absent", e.Column)
}

// LoadVehicleTable parses a VUT_status file and derives the computed
// columns:
//
//   - t: relative time, Time - Time[0]
//   - VUT_vel_ms: VUT_vel_abs with missing values as 0.0
//   - VUT_vel_kmh: VUT_vel_ms x 3.6
//
// Returns *tabular.ParseError for undecodable input and *SchemaError
// when the Time column is absent.
func LoadVehicleTable(b []byte) (*tabular.Table, error) {
	t, err := tabular.Decode(b)
	if err != nil {
		return nil, err
	}

	timeCol, ok := t.Column("Time")
	if !ok {
		return nil, &SchemaError{Column: "Time"}
	}

	// Relative time against the first row. A missing first Time value
	// propagates: every t cell comes out missing, and the channel
	// builder renders those as zeros.
	rel := &tabular.Column{Name: "t", Kind: tabular.KindNumber, Values: make([]tabular.Value, t.NumRows())}
	if first, ok0 := first(timeCol); ok0 {
		for i, v := range timeCol.Values {
			if n, ok := v.Float(); ok {
				rel.Values[i] = tabular.Value{Kind: tabular.KindNumber, Num: n - first}
			}
		}
	}
	t.SetColumn(rel)

	if abs, ok := t.Column("VUT_vel_abs"); ok {
		ms := make([]float64, t.NumRows())
		kmh := make([]float64, t.NumRows())
		for i, v := range abs.Values {
			n, _ := v.Float() // missing velocity samples count as standstill
			ms[i] = n
			kmh[i] = n * 3.6
		}
		t.SetColumn(tabular.NumberColumn("VUT_vel_ms", ms))
		t.SetColumn(tabular.NumberColumn("VUT_vel_kmh", kmh))
	}

	return t, nil
}

// LoadActorTable parses an Environment_actors_true file. Where the
// absolute velocity is zero or missing but lateral/longitudinal
// components exist, it is rebuilt as their Euclidean norm; nonzero
// values are left untouched.
func LoadActorTable(b []byte) (*tabular.Table, error) {
	t, err := tabular.Decode(b)
	if err != nil {
		return nil, err
	}

	abs, hasAbs := t.Column("Actor_vel_abs")
	lat, hasLat := t.Column("Actor_vel_lat")
	if hasAbs && hasLat {
		lng, hasLng := t.Column("Actor_vel_lng")
		rebuilt := abs.Clone()
		for i := range rebuilt.Values {
			if n, ok := rebuilt.Values[i].Float(); ok && n != 0 {
				continue
			}
			var vl, vg float64
			if n, ok := lat.Values[i].Float(); ok {
				vl = n
			}
			if hasLng {
				if n, ok := lng.Values[i].Float(); ok {
					vg = n
				}
			}
			rebuilt.Values[i] = tabular.Value{Kind: tabular.KindNumber, Num: math.Hypot(vl, vg)}
		}
		t.SetColumn(rebuilt)
	}

	return t, nil
}

// EnumerateActors returns the distinct actors of a normalized actor
// table in first-appearance order. Rows without an Actor_Id value are
// skipped; the type code is the first non-missing Actor_type in that
// actor's rows, or 0 when the column is absent.
func EnumerateActors(cat *catalog.Catalog, t *tabular.Table) []ActorInfo {
	result := []ActorInfo{}
	for _, g := range groupByActor(t) {
		result = append(result, ActorInfo{
			ActorID:       g.id,
			ActorType:     g.actorType,
			ActorTypeName: cat.TypeName(g.actorType),
		})
	}
	return result
}

// Evaluate validates and extracts trajectory data for one simulation
// run. A ParseError or SchemaError on the vehicle file aborts the whole
// evaluation; an unusable actor file degrades to a vehicle-only result.
func Evaluate(cat *catalog.Catalog, vutBytes, actorBytes []byte, testCaseID, runID string) (*EvaluationResult, error) {
	vut, err := LoadVehicleTable(vutBytes)
	if err != nil {
		return nil, err
	}

	allErrors, allWarnings := validator.ValidateVehicle(vut)

	result := &EvaluationResult{
		TestCaseID: testCaseID,
		RunID:      runID,
		Vehicle: VehicleChannels{
			T:             channel(vut, "t"),
			Lat:           channel(vut, "VUT_pos_lat"),
			Lng:           channel(vut, "VUT_pos_lng"),
			Heading:       channel(vut, "VUT_heading"),
			VelMs:         channel(vut, "VUT_vel_ms"),
			VelKmh:        channel(vut, "VUT_vel_kmh"),
			AcclLat:       channel(vut, "VUT_accl_lat"),
			AcclLng:       channel(vut, "VUT_accl_lng"),
			BrakingLevel:  channel(vut, "VUT_braking_level"),
			ThrottleLevel: channel(vut, "VUT_throttle_level"),
			SteeringPct:   channel(vut, "VUT_steering_angle_percentage"),
			IndLeft:       channel(vut, "VUT_ind_st_dir_left"),
			IndRight:      channel(vut, "VUT_ind_st_dir_right"),
			IndHazard:     channel(vut, "VUT_ind_st_hazard"),
			IndReverse:    channel(vut, "VUT_ind_st_reverse"),
			IndBraking:    channel(vut, "VUT_ind_st_braking"),
		},
		Actors: []ActorResult{},
	}

	if actorBytes != nil {
		actors, err := LoadActorTable(actorBytes)
		if err != nil {
			// Unusable actor data never sinks the run.
			log.Printf("Dropping unusable actor data for %s/%s: %v", testCaseID, runID, err)
		} else {
			actorErrors, actorWarnings := validator.ValidateActors(actors)
			allErrors = append(allErrors, actorErrors...)
			allWarnings = append(allWarnings, actorWarnings...)

			steps := stepTimes(vut)
			for _, g := range groupByActor(actors) {
				result.Actors = append(result.Actors, ActorResult{
					ActorID:       g.id,
					ActorType:     g.actorType,
					ActorTypeName: cat.TypeName(g.actorType),
					Trajectory:    buildTrajectory(actors, g.rows, steps),
				})
			}
		}
	}

	result.Validation = ValidationResult{
		Valid:    len(allErrors) == 0,
		Errors:   allErrors,
		Warnings: allWarnings,
	}

	return result, nil
}

// actorGroup is one actor's row subset within an actor table.
type actorGroup struct {
	id        string
	actorType int
	rows      []int
}

// groupByActor partitions an actor table's rows by Actor_Id in
// first-appearance order. Empty when the table has no rows or no
// Actor_Id column.
func groupByActor(t *tabular.Table) []actorGroup {
	idCol, ok := t.Column("Actor_Id")
	if !ok {
		return nil
	}
	typeCol, hasType := t.Column("Actor_type")

	var order []string
	rowsByID := make(map[string][]int)
	for i, v := range idCol.Values {
		if v.Missing() {
			continue
		}
		id := v.String()
		if _, seen := rowsByID[id]; !seen {
			order = append(order, id)
		}
		rowsByID[id] = append(rowsByID[id], i)
	}

	groups := make([]actorGroup, 0, len(order))
	for _, id := range order {
		rows := rowsByID[id]
		actorType := 0
		if hasType {
			for _, r := range rows {
				if n, ok := typeCol.Values[r].Float(); ok {
					actorType = int(n)
					break
				}
			}
		}
		groups = append(groups, actorGroup{id: id, actorType: actorType, rows: rows})
	}
	return groups
}

// stepTimes maps each vehicle step number to its relative time t. When
// a step number appears more than once the first row wins.
func stepTimes(vut *tabular.Table) map[float64]float64 {
	steps := make(map[float64]float64)
	stepCol, ok := vut.Column("Step_number")
	if !ok {
		return steps
	}
	for i, v := range stepCol.Values {
		s, ok := v.Float()
		if !ok {
			continue
		}
		if _, seen := steps[s]; seen {
			continue
		}
		t, _ := vut.Float("t", i) // missing t renders as 0.0
		steps[s] = t
	}
	return steps
}

// buildTrajectory extracts one actor's map track from its row subset.
// Positions round to 6 decimal places, heading and t to 4; missing
// values become 0.0 so the arrays stay index-aligned.
func buildTrajectory(actors *tabular.Table, rows []int, steps map[float64]float64) Trajectory {
	tr := Trajectory{
		Lat:     make([]float64, len(rows)),
		Lng:     make([]float64, len(rows)),
		Heading: make([]float64, len(rows)),
		T:       make([]float64, len(rows)),
	}
	for i, r := range rows {
		if n, ok := actors.Float("Actor_pos_true_lat", r); ok {
			tr.Lat[i] = roundTo(n, 6)
		}
		if n, ok := actors.Float("Actor_pos_true_lng", r); ok {
			tr.Lng[i] = roundTo(n, 6)
		}
		if n, ok := actors.Float("Actor_heading_true", r); ok {
			tr.Heading[i] = roundTo(n, 4)
		}
		if s, ok := actors.Float("Step_number", r); ok {
			if t, found := steps[s]; found {
				tr.T[i] = roundTo(t, 4)
			}
		}
	}
	return tr
}

// channel extracts a vehicle column as rounded floats with 0.0 for
// missing values, or an all-zero slice when the column is absent.
func channel(t *tabular.Table, name string) []float64 {
	out := make([]float64, t.NumRows())
	c, ok := t.Column(name)
	if !ok {
		return out
	}
	for i, v := range c.Values {
		if n, ok := v.Float(); ok {
			out[i] = roundTo(n, 6)
		}
	}
	return out
}

// first returns the column's row-0 value, if it is a number.
func first(c *tabular.Column) (float64, bool) {
	if len(c.Values) == 0 {
		return 0, false
	}
	return c.Values[0].Float()
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
