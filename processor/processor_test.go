package processor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/catalog"
	"github.com/cetran-sg/ViSTA-Simulation-Format-Validator/tabular"
)

func TestLoadVehicleTableDerivesRelativeTime(t *testing.T) {
	table, err := LoadVehicleTable([]byte(
		"Time,Step_number,VUT_pos_lat\n" +
			"100.5,0,1.29\n" +
			"100.6,1,1.29\n" +
			"100.8,2,1.29\n"))
	require.NoError(t, err)

	c, ok := table.Column("t")
	require.True(t, ok, "t column should be derived")

	want := []float64{0.0, 0.1, 0.3}
	for i, w := range want {
		got, ok := c.Values[i].Float()
		require.True(t, ok)
		assert.InDelta(t, w, got, 1e-9, "t[%d]", i)
	}
}

func TestLoadVehicleTableDerivesVelocities(t *testing.T) {
	table, err := LoadVehicleTable([]byte(
		"Time,VUT_vel_abs\n" +
			"0,2.5\n" +
			"1,\n" + // missing velocity samples count as standstill
			"2,10\n"))
	require.NoError(t, err)

	ms, ok := table.Column("VUT_vel_ms")
	require.True(t, ok)
	kmh, ok := table.Column("VUT_vel_kmh")
	require.True(t, ok)

	wantMs := []float64{2.5, 0.0, 10.0}
	wantKmh := []float64{9.0, 0.0, 36.0}
	for i := range wantMs {
		gotMs, _ := ms.Values[i].Float()
		gotKmh, _ := kmh.Values[i].Float()
		assert.InDelta(t, wantMs[i], gotMs, 1e-9)
		assert.InDelta(t, wantKmh[i], gotKmh, 1e-9)
	}
}

func TestLoadVehicleTableNoVelocityColumn(t *testing.T) {
	table, err := LoadVehicleTable([]byte("Time\n0\n1\n"))
	require.NoError(t, err)
	assert.False(t, table.HasColumn("VUT_vel_ms"))
	assert.False(t, table.HasColumn("VUT_vel_kmh"))
}

func TestLoadVehicleTableMissingTime(t *testing.T) {
	_, err := LoadVehicleTable([]byte("Step_number,VUT_pos_lat\n0,1.29\n"))
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "Time", schemaErr.Column)
}

func TestLoadVehicleTableParseError(t *testing.T) {
	_, err := LoadVehicleTable([]byte("a,b\n\"broken\n"))
	var parseErr *tabular.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestLoadActorTableReconstructsVelocity(t *testing.T) {
	table, err := LoadActorTable([]byte(
		"Actor_Id,Actor_vel_abs,Actor_vel_lat,Actor_vel_lng\n" +
			"a1,0,3,4\n" + // zero: rebuilt from components
			"a1,2.5,3,4\n" + // nonzero: never overwritten
			"a1,,6,8\n" + // missing: rebuilt
			"a1,0,5,\n")) // missing component counts as 0
	require.NoError(t, err)

	c, ok := table.Column("Actor_vel_abs")
	require.True(t, ok)

	want := []float64{5.0, 2.5, 10.0, 5.0}
	for i, w := range want {
		got, ok := c.Values[i].Float()
		require.True(t, ok, "row %d", i)
		assert.InDelta(t, w, got, 1e-9, "row %d", i)
	}
}

func TestLoadActorTableWithoutComponentsLeavesVelocity(t *testing.T) {
	table, err := LoadActorTable([]byte("Actor_Id,Actor_vel_abs\na1,0\n"))
	require.NoError(t, err)

	c, _ := table.Column("Actor_vel_abs")
	got, ok := c.Values[0].Float()
	require.True(t, ok)
	assert.Equal(t, 0.0, got)
}

func TestEnumerateActors(t *testing.T) {
	cat := catalog.Default()
	table, err := LoadActorTable([]byte(
		"Actor_Id,Actor_type\n" +
			"cyclist_1,2\n" +
			"ped_1,\n" + // type from a later row of the same actor
			"cyclist_1,2\n" +
			"ped_1,0\n" +
			"tsv_1,4\n"))
	require.NoError(t, err)

	got := EnumerateActors(cat, table)
	want := []ActorInfo{
		{ActorID: "cyclist_1", ActorType: 2, ActorTypeName: "cyclist"},
		{ActorID: "ped_1", ActorType: 0, ActorTypeName: "pedestrian"},
		{ActorID: "tsv_1", ActorType: 4, ActorTypeName: "passenger_vehicle"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("EnumerateActors() mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumerateActorsEdgeCases(t *testing.T) {
	cat := catalog.Default()

	t.Run("no Actor_Id column", func(t *testing.T) {
		table, err := LoadActorTable([]byte("Time,Actor_type\n0,4\n"))
		require.NoError(t, err)
		assert.Empty(t, EnumerateActors(cat, table))
	})

	t.Run("header only", func(t *testing.T) {
		table, err := LoadActorTable([]byte("Actor_Id,Actor_type\n"))
		require.NoError(t, err)
		assert.Empty(t, EnumerateActors(cat, table))
	})

	t.Run("no type column defaults to 0", func(t *testing.T) {
		table, err := LoadActorTable([]byte("Actor_Id\nbus_7\n"))
		require.NoError(t, err)
		got := EnumerateActors(cat, table)
		require.Len(t, got, 1)
		assert.Equal(t, 0, got[0].ActorType)
		assert.Equal(t, "pedestrian", got[0].ActorTypeName)
	})

	t.Run("unknown type code", func(t *testing.T) {
		table, err := LoadActorTable([]byte("Actor_Id,Actor_type\nx,42\n"))
		require.NoError(t, err)
		got := EnumerateActors(cat, table)
		require.Len(t, got, 1)
		assert.Equal(t, "type_42", got[0].ActorTypeName)
	})
}

const evalVehicleCSV = "Time,Step_number,VUT_pos_lat,VUT_pos_lng,VUT_heading,VUT_vel_abs\n" +
	"100.0,0,1.2921000,103.7764,45.0,2.5\n" +
	"100.1,1,1.2922,103.7765,45.1,2.6\n" +
	"100.2,2,1.2923,103.7766,45.2,2.7\n"

const evalActorCSV = "Time,Step_number,Actor_Id,Actor_type,Actor_pos_true_lat,Actor_pos_true_lng,Actor_heading_true\n" +
	"100.0,0,ped_1,0,1.2931,103.7774,180.12345\n" +
	"100.1,1,ped_1,0,1.2932,103.7775,\n" +
	"100.2,9,ped_1,0,1.2933,103.7776,181.0\n"

func TestEvaluate(t *testing.T) {
	cat := catalog.Default()

	result, err := Evaluate(cat, []byte(evalVehicleCSV), []byte(evalActorCSV), "M2-CL4-S-TST-05-02", "r0")
	require.NoError(t, err)

	assert.Equal(t, "M2-CL4-S-TST-05-02", result.TestCaseID)
	assert.Equal(t, "r0", result.RunID)
	assert.True(t, result.Validation.Valid)
	assert.Empty(t, result.Validation.Errors)

	// Every channel is index-aligned with the vehicle table.
	assert.Equal(t, []float64{0.0, 0.1, 0.2}, result.Vehicle.T)
	assert.Equal(t, []float64{1.2921, 1.2922, 1.2923}, result.Vehicle.Lat)
	assert.Equal(t, []float64{9.0, 9.36, 9.72}, result.Vehicle.VelKmh)
	// Channels with no source column come back as zeros, same length.
	assert.Equal(t, []float64{0, 0, 0}, result.Vehicle.AcclLat)
	assert.Equal(t, []float64{0, 0, 0}, result.Vehicle.IndHazard)

	require.Len(t, result.Actors, 1)
	actor := result.Actors[0]
	assert.Equal(t, "ped_1", actor.ActorID)
	assert.Equal(t, 0, actor.ActorType)
	assert.Equal(t, "pedestrian", actor.ActorTypeName)

	want := Trajectory{
		Lat:     []float64{1.2931, 1.2932, 1.2933},
		Lng:     []float64{103.7774, 103.7775, 103.7776},
		Heading: []float64{180.1235, 0.0, 181.0}, // 4 dp; missing becomes 0.0
		// Step 9 has no vehicle row, so its t falls back to 0.0.
		T: []float64{0.0, 0.1, 0.0},
	}
	if diff := cmp.Diff(want, actor.Trajectory); diff != "" {
		t.Errorf("trajectory mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateWithoutActorBytes(t *testing.T) {
	result, err := Evaluate(catalog.Default(), []byte(evalVehicleCSV), nil, "tc", "r0")
	require.NoError(t, err)
	assert.True(t, result.Validation.Valid)
	assert.Empty(t, result.Actors)
}

func TestEvaluateUnusableActorBytesDegrade(t *testing.T) {
	result, err := Evaluate(catalog.Default(), []byte(evalVehicleCSV), []byte("a,b\n\"broken\n"), "tc", "r0")
	require.NoError(t, err)
	assert.True(t, result.Validation.Valid, "a broken actor file must not sink the run")
	assert.Empty(t, result.Actors)
}

func TestEvaluateBadVehicleBytesFail(t *testing.T) {
	_, err := Evaluate(catalog.Default(), []byte("a,b\n\"broken\n"), nil, "tc", "r0")
	var parseErr *tabular.ParseError
	require.True(t, errors.As(err, &parseErr), "want *tabular.ParseError, got %v", err)
}

func TestEvaluateCombinesActorValidation(t *testing.T) {
	badActor := "Time,Step_number,Actor_Id,Actor_type,Actor_pos_true_lat,Actor_pos_true_lng,Actor_heading_true\n" +
		"100.0,0,a1,4.5,1.29,103.77,45\n"

	result, err := Evaluate(catalog.Default(), []byte(evalVehicleCSV), []byte(badActor), "tc", "r0")
	require.NoError(t, err)
	assert.False(t, result.Validation.Valid)
	assert.Contains(t, result.Validation.Errors, "Actor_type contains non-integer values")
}

func TestEvaluateDuplicateStepUsesFirstMatch(t *testing.T) {
	vehicle := "Time,Step_number,VUT_pos_lat,VUT_pos_lng,VUT_heading,VUT_vel_abs\n" +
		"100.0,5,1.29,103.77,45,1\n" +
		"100.4,5,1.29,103.77,45,1\n"
	actor := "Time,Step_number,Actor_Id,Actor_type,Actor_pos_true_lat,Actor_pos_true_lng,Actor_heading_true\n" +
		"100.0,5,a1,4,1.29,103.77,45\n"

	result, err := Evaluate(catalog.Default(), []byte(vehicle), []byte(actor), "tc", "r0")
	require.NoError(t, err)
	require.Len(t, result.Actors, 1)
	assert.Equal(t, []float64{0.0}, result.Actors[0].Trajectory.T)
}

func TestEvaluateDoesNotMutateInputs(t *testing.T) {
	vutBytes := []byte(evalVehicleCSV)
	actorBytes := []byte(evalActorCSV)

	r1, err := Evaluate(catalog.Default(), vutBytes, actorBytes, "tc", "r0")
	require.NoError(t, err)
	r2, err := Evaluate(catalog.Default(), vutBytes, actorBytes, "tc", "r0")
	require.NoError(t, err)

	if diff := cmp.Diff(r1, r2); diff != "" {
		t.Errorf("repeated evaluation differs (-first +second):\n%s", diff)
	}
}
