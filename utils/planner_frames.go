package utils

import (
	"fmt"

	"github.com/paulmach/orb"
	"go.einride.tech/can"
)

// Frame names of the planner CAN interface.
const (
	FrameEgoPose     = "EGO_POSE"
	FrameEgoFrenet   = "EGO_FRENET"
	FrameEgoMotion   = "EGO_MOTION"
	FrameEgoPathEnd  = "EGO_PATH_END"
	FrameObjState    = "OBJ_STATE"
	FrameObjVelocity = "OBJ_VELOCITY"
	FramePathHeader  = "PATH_HEADER"
	FramePathPoint   = "PATH_POINT"
)

// Signal names of the planner CAN interface.
const (
	SigEgoX       = "ego_x_m"
	SigEgoY       = "ego_y_m"
	SigEgoS       = "ego_s_m"
	SigEgoD       = "ego_d_m"
	SigEgoYaw     = "ego_yaw_deg"
	SigEgoSpeed   = "ego_speed_mps"
	SigUnconsumed = "path_unconsumed"
	SigEndPathS   = "end_path_s_m"
	SigEndPathD   = "end_path_d_m"
	SigObjID      = "obj_id"
	SigObjS       = "obj_s_m"
	SigObjD       = "obj_d_m"
	SigObjVX      = "obj_vx_mps"
	SigObjVY      = "obj_vy_mps"
	SigPointCount = "point_count"
	SigState      = "state"
	SigTargetLane = "target_lane"
	SigRefSpeed   = "ref_speed_mps"
	SigSequence   = "sequence"
	SigPointIndex = "point_index"
	SigPointX     = "point_x_m"
	SigPointY     = "point_y_m"
)

const (
	maxPathPoints  = 255
	sequenceModulo = 256
)

// PathHeader announces the path frames that follow it.
type PathHeader struct {
	Sequence   uint32
	State      int
	TargetLane int
	RefSpeed   float64
}

// EncodePath builds the PATH_HEADER frame followed by one PATH_POINT per point.
func (m *CANMap) EncodePath(h PathHeader, path orb.LineString) ([]can.Frame, error) {
	if len(path) > maxPathPoints {
		return nil, fmt.Errorf("path of %d points exceeds %d", len(path), maxPathPoints)
	}

	frames := make([]can.Frame, 0, len(path)+1)
	hdr, err := m.EncodeFrame(FramePathHeader, map[string]float64{
		SigPointCount: float64(len(path)),
		SigState:      float64(h.State),
		SigTargetLane: float64(h.TargetLane),
		SigRefSpeed:   h.RefSpeed,
		SigSequence:   float64(h.Sequence % sequenceModulo),
	})
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	frames = append(frames, hdr)

	for i, p := range path {
		f, err := m.EncodeFrame(FramePathPoint, map[string]float64{
			SigPointIndex: float64(i),
			SigPointX:     p[0],
			SigPointY:     p[1],
		})
		if err != nil {
			return nil, fmt.Errorf("encode point %d: %w", i, err)
		}
		frames = append(frames, f)
	}
	return frames, nil
}
