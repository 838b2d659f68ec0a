package main

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"go.einride.tech/can"

	"highway-planner/environment"
	"highway-planner/frenet"
	"highway-planner/planner"
	"highway-planner/utils"
)

type trackedObject struct {
	obs      environment.Observation
	hasState bool
	seen     time.Time
}

// TelemetryAssembler folds received CAN frames into planner telemetry. It also keeps
// the last transmitted path, whose unconsumed tail the vehicle reports by count.
type TelemetryAssembler struct {
	cmap *utils.CANMap
	road *frenet.Map
	ttl  time.Duration

	ego        planner.Ego
	hasPose    bool
	hasFrenet  bool
	unconsumed int
	endS, endD float64
	hasEnd     bool
	objects    map[int]*trackedObject
	lastPath   orb.LineString
}

func NewTelemetryAssembler(cmap *utils.CANMap, road *frenet.Map, ttl time.Duration) *TelemetryAssembler {
	return &TelemetryAssembler{
		cmap:    cmap,
		road:    road,
		ttl:     ttl,
		objects: map[int]*trackedObject{},
	}
}

// Apply decodes f and updates the state. Frames not in the map are an error; frames
// of other directions are ignored.
func (a *TelemetryAssembler) Apply(f can.Frame, now time.Time) error {
	fd, err := a.cmap.FrameByID(f.ID)
	if err != nil {
		return err
	}
	if fd.Direction != utils.DirectionRX {
		return nil
	}
	v, err := a.cmap.DecodeFrame(f)
	if err != nil {
		return err
	}

	switch fd.Name {
	case utils.FrameEgoPose:
		a.ego.X, a.ego.Y = v[utils.SigEgoX], v[utils.SigEgoY]
		a.hasPose = true
	case utils.FrameEgoFrenet:
		a.ego.S, a.ego.D = v[utils.SigEgoS], v[utils.SigEgoD]
		a.ego.Yaw = v[utils.SigEgoYaw] * math.Pi / 180
		a.hasFrenet = true
	case utils.FrameEgoMotion:
		a.ego.Speed = v[utils.SigEgoSpeed]
		a.unconsumed = int(v[utils.SigUnconsumed])
	case utils.FrameEgoPathEnd:
		a.endS, a.endD = v[utils.SigEndPathS], v[utils.SigEndPathD]
		a.hasEnd = true
	case utils.FrameObjState:
		o := a.object(int(v[utils.SigObjID]), now)
		o.obs.S, o.obs.D = v[utils.SigObjS], v[utils.SigObjD]
		o.hasState = true
	case utils.FrameObjVelocity:
		o := a.object(int(v[utils.SigObjID]), now)
		o.obs.VX, o.obs.VY = v[utils.SigObjVX], v[utils.SigObjVY]
	default:
		return fmt.Errorf("unhandled rx frame %s", fd.Name)
	}
	return nil
}

func (a *TelemetryAssembler) object(id int, now time.Time) *trackedObject {
	o, ok := a.objects[id]
	if !ok {
		o = &trackedObject{obs: environment.Observation{ID: id}}
		a.objects[id] = o
	}
	o.seen = now
	return o
}

// Ready reports whether the ego pose has been received.
func (a *TelemetryAssembler) Ready() bool { return a.hasPose && a.hasFrenet }

// Snapshot builds the telemetry for a cycle at now, expiring objects older than the TTL.
func (a *TelemetryAssembler) Snapshot(now time.Time) planner.Telemetry {
	for id, o := range a.objects {
		if now.Sub(o.seen) > a.ttl {
			delete(a.objects, id)
		}
	}

	ids := make([]int, 0, len(a.objects))
	for id, o := range a.objects {
		if o.hasState {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	traffic := make([]environment.Observation, 0, len(ids))
	for _, id := range ids {
		obs := a.objects[id].obs
		p := a.road.ToCartesian(obs.S, obs.D)
		obs.X, obs.Y = p[0], p[1]
		traffic = append(traffic, obs)
	}

	t := planner.Telemetry{Ego: a.ego, Traffic: traffic}
	if n := min(a.unconsumed, len(a.lastPath)); n > 0 {
		t.Previous = append(orb.LineString(nil), a.lastPath[len(a.lastPath)-n:]...)
		if a.hasEnd {
			t.EndPathS, t.EndPathD = a.endS, a.endD
		} else {
			t.EndPathS, t.EndPathD = a.road.ToFrenet(t.Previous[n-1])
		}
	}
	return t
}

// Sent records the path just transmitted.
func (a *TelemetryAssembler) Sent(path orb.LineString) {
	a.lastPath = append(a.lastPath[:0], path...)
}

// Objects is the number of tracked objects.
func (a *TelemetryAssembler) Objects() int { return len(a.objects) }
