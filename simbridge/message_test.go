package simbridge

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const telemetryFrame = `42["telemetry",{"x":909.48,"y":1128.67,"yaw":90,"speed":10,"s":124.83,"d":6.16,` +
	`"previous_path_x":[910.1,910.5],"previous_path_y":[1128.7,1128.8],"end_path_s":125.9,"end_path_d":6.1,` +
	`"sensor_fusion":[[0,1000.5,1124.6,10.2,0.1,215.7,2.2],[3,900.1,1130,15,-0.5,110.2,9.9]]}]`

func TestParseTelemetry(t *testing.T) {
	t.Parallel()
	msg, err := ParseMessage([]byte(telemetryFrame))
	require.NoError(t, err)
	require.Equal(t, EventTelemetry, msg.Event)

	tel := msg.Telemetry
	assert.Equal(t, 909.48, tel.Ego.X)
	assert.Equal(t, 6.16, tel.Ego.D)
	assert.InDelta(t, math.Pi/2, tel.Ego.Yaw, 1e-12)
	assert.InDelta(t, 4.4704, tel.Ego.Speed, 1e-9)
	assert.Equal(t, orb.LineString{{910.1, 1128.7}, {910.5, 1128.8}}, tel.Previous)
	assert.Equal(t, 125.9, tel.EndPathS)
	assert.Equal(t, 6.1, tel.EndPathD)

	require.Len(t, tel.Traffic, 2)
	assert.Equal(t, 3, tel.Traffic[1].ID)
	assert.Equal(t, 15.0, tel.Traffic[1].VX)
	assert.Equal(t, 110.2, tel.Traffic[1].S)
	assert.Equal(t, 9.9, tel.Traffic[1].D)
}

func TestParseMessageEvents(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		raw   string
		event Event
	}{
		{"manual null payload", `42["telemetry",null]`, EventNone},
		{"missing payload", `42["telemetry"]`, EventNone},
		{"other event", `42["reset",{"a":1}]`, EventOther},
		{"empty telemetry", `42["telemetry",{}]`, EventTelemetry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			msg, err := ParseMessage([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.event, msg.Event)
		})
	}
}

func TestParseMessageErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseMessage([]byte(`2probe`))
	require.ErrorIs(t, err, ErrNotEvent)
	_, err = ParseMessage([]byte(`42`))
	require.ErrorIs(t, err, ErrNotEvent)

	for _, raw := range []string{
		`42{"x":1}`,
		`42[]`,
		`42[7,{}]`,
		`42["telemetry",{"previous_path_x":[1,2],"previous_path_y":[1]}]`,
		`42["telemetry",{"sensor_fusion":[[1,2,3]]}]`,
	} {
		_, err := ParseMessage([]byte(raw))
		assert.Error(t, err, raw)
		assert.NotErrorIs(t, err, ErrNotEvent, raw)
	}
}

func TestEncodeControl(t *testing.T) {
	t.Parallel()
	out, err := EncodeControl(orb.LineString{{1.5, 2}, {3, 4.25}})
	require.NoError(t, err)
	assert.Equal(t, `42["control",{"next_x":[1.5,3],"next_y":[2,4.25]}]`, string(out))

	var parts []json.RawMessage
	require.NoError(t, json.Unmarshal(out[2:], &parts))
	require.Len(t, parts, 2)

	empty, err := EncodeControl(nil)
	require.NoError(t, err)
	assert.Equal(t, `42["control",{"next_x":[],"next_y":[]}]`, string(empty))
}
