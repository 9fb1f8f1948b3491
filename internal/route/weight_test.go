package route

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/flight-route-planner/internal/flightplan"
	"github.com/i474232898/flight-route-planner/internal/weather"
)

func ptr(v float64) *float64 { return &v }

func pathOf(n int) flightplan.FlightPath {
	nodes := make([]flightplan.Waypoint, n)
	for i := range nodes {
		nodes[i] = flightplan.Waypoint{Ident: "WP", Lat: float64(i), Lon: float64(i)}
	}
	return flightplan.FlightPath{ID: 1, Distance: 100, Route: &flightplan.Route{Nodes: nodes}}
}

func snap(desc string, visibility, wind float64) weather.Snapshot {
	return weather.Snapshot{Description: desc, Visibility: ptr(visibility), WindSpeed: ptr(wind)}
}

var descriptions = []string{
	"clear sky", "few clouds", "scattered clouds", "broken clouds",
	"shower rain", "rain", "thunderstorm", "snow", "mist", "volcanic ash",
}

func TestComputeWeightBestCase(t *testing.T) {
	w, err := ComputeWeight(pathOf(1), []weather.Snapshot{snap("clear sky", 5000, 10)})
	require.NoError(t, err)
	assert.Equal(t, Weight(1), w)
	assert.Equal(t, "1.000", w.String())
}

func TestComputeWeightWorstCaseIsCapped(t *testing.T) {
	w, err := ComputeWeight(pathOf(1), []weather.Snapshot{snap("tornado", 4999, 10.1)})
	require.NoError(t, err)
	assert.Equal(t, Weight(10), w)
	assert.Equal(t, "10.000", w.String())
}

func TestComputeWeightConditionTable(t *testing.T) {
	for i, desc := range descriptions {
		w, err := ComputeWeight(pathOf(1), []weather.Snapshot{snap(desc, 10000, 0)})
		require.NoError(t, err)
		assert.Equal(t, Weight(i+1), w, desc)
	}
}

func TestComputeWeightPenalties(t *testing.T) {
	tests := []struct {
		name string
		s    weather.Snapshot
		want Weight
	}{
		{"low visibility", snap("clear sky", 4999, 0), 3},
		{"visibility at threshold", snap("clear sky", 5000, 0), 1},
		{"high wind", snap("clear sky", 10000, 10.01), 4},
		{"wind at threshold", snap("clear sky", 10000, 10), 1},
		{"both", snap("rain", 100, 25), 10},
		{"unreported visibility and wind", weather.Snapshot{Description: "rain"}, 6},
		{"missing description", weather.Snapshot{Visibility: ptr(9000), WindSpeed: ptr(1)}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ComputeWeight(pathOf(1), []weather.Snapshot{tt.s})
			require.NoError(t, err)
			assert.Equal(t, tt.want, w)
		})
	}
}

func TestComputeWeightAveragesAndRounds(t *testing.T) {
	w, err := ComputeWeight(pathOf(3), []weather.Snapshot{
		snap("clear sky", 10000, 0),
		snap("few clouds", 10000, 0),
		snap("few clouds", 10000, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, "1.667", w.String())
	assert.InDelta(t, 1.667, float64(w), 1e-12)

	w, err = ComputeWeight(pathOf(2), []weather.Snapshot{
		snap("clear sky", 10000, 0),
		snap("rain", 10000, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, Weight(3.5), w)
}

func TestComputeWeightRoundsHalfUp(t *testing.T) {
	// 2001 / 2000 = 1.0005 exactly.
	snaps := make([]weather.Snapshot, 2000)
	for i := range snaps {
		snaps[i] = snap("clear sky", 10000, 0)
	}
	snaps[0] = snap("few clouds", 10000, 0)

	w, err := ComputeWeight(pathOf(2000), snaps)
	require.NoError(t, err)
	assert.Equal(t, "1.001", w.String())
}

func TestComputeWeightMismatch(t *testing.T) {
	_, err := ComputeWeight(pathOf(3), []weather.Snapshot{snap("clear sky", 10000, 0)})
	assert.ErrorIs(t, err, ErrIncompleteData)

	_, err = ComputeWeight(pathOf(1), nil)
	assert.ErrorIs(t, err, ErrIncompleteData)
}

func TestComputeWeightNoWaypoints(t *testing.T) {
	_, err := ComputeWeight(flightplan.FlightPath{ID: 1}, nil)
	assert.ErrorIs(t, err, ErrNoWaypoints)

	_, err = ComputeWeight(pathOf(0), []weather.Snapshot{})
	assert.ErrorIs(t, err, ErrNoWaypoints)
}

func randomSnapshots(r *rand.Rand, n int) []weather.Snapshot {
	out := make([]weather.Snapshot, n)
	for i := range out {
		out[i] = snap(descriptions[r.Intn(len(descriptions))], float64(r.Intn(12000)), r.Float64()*20)
	}
	return out
}

func TestComputeWeightBoundedAndDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := 1 + r.Intn(25)
		path := pathOf(n)
		snaps := randomSnapshots(r, n)

		a, err := ComputeWeight(path, snaps)
		require.NoError(t, err)
		b, err := ComputeWeight(path, snaps)
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.GreaterOrEqual(t, float64(a), 0.0)
		assert.LessOrEqual(t, float64(a), 10.0)
		assert.Len(t, a.String()[len(a.String())-4:], 4)
		assert.Equal(t, byte('.'), a.String()[len(a.String())-4])
	}
}

func TestComputeWeightMonotonicInCondition(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		n := 1 + r.Intn(10)
		path := pathOf(n)
		snaps := randomSnapshots(r, n)

		idx := r.Intn(n)
		cur := ConditionWeight(snaps[idx].Condition())
		if cur == MaxWeight {
			continue
		}
		worse := make([]weather.Snapshot, n)
		copy(worse, snaps)
		worse[idx].Description = descriptions[cur+r.Intn(len(descriptions)-cur)]

		before, err := ComputeWeight(path, snaps)
		require.NoError(t, err)
		after, err := ComputeWeight(path, worse)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, float64(after), float64(before))
	}
}

func TestWeightMarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		W Weight `json:"w"`
	}{W: 2.5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"w": 2.500}`, string(b))
	assert.Contains(t, string(b), "2.500")
}
