package projection

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/metalabel/internal/geometry"
)

// ErrInvalidCalibration is returned for projection matrices that are not
// finite 3x4 matrices.
var ErrInvalidCalibration = errors.New("invalid camera calibration")

// bodyToCamera is the fixed rotation from body axes (X fwd, Y left, Z up)
// to canonical camera axes (X right, Y down, Z fwd).
var bodyToCamera = mat.NewDense(3, 3, []float64{
	0, -1, 0,
	0, 0, -1,
	1, 0, 0,
})

// BodyToCamera re-expresses a body-convention vector in canonical camera
// axes.
func BodyToCamera(v r3.Vec) r3.Vec {
	return applyRotation(bodyToCamera, v)
}

// CameraToBody is the inverse of BodyToCamera.
func CameraToBody(v r3.Vec) r3.Vec {
	return applyRotation(bodyToCamera.T(), v)
}

func applyRotation(m mat.Matrix, v r3.Vec) r3.Vec {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{v.X, v.Y, v.Z}))
	return r3.Vec{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}

// Pixel is an image-plane coordinate.
type Pixel struct {
	U float64 `json:"u"`
	V float64 `json:"v"`
}

// Calibration describes one camera: the pose of its mount in world
// coordinates (body axis convention) and its 3x4 projection matrix, which
// expects canonical camera coordinates.
type Calibration struct {
	Sensor    string
	Reference geometry.ReferenceFrame
	P         *mat.Dense
}

// NewCalibration validates P and returns a Calibration. P is copied.
func NewCalibration(sensor string, ref geometry.ReferenceFrame, p mat.Matrix) (Calibration, error) {
	if err := ValidateProjection(p); err != nil {
		return Calibration{}, err
	}
	return Calibration{Sensor: sensor, Reference: ref.Static(), P: mat.DenseCopyOf(p)}, nil
}

// IntrinsicsToProjection builds P = K·[I|0] from a 3x3 intrinsic matrix
// given row-major.
func IntrinsicsToProjection(k [9]float64) *mat.Dense {
	return mat.NewDense(3, 4, []float64{
		k[0], k[1], k[2], 0,
		k[3], k[4], k[5], 0,
		k[6], k[7], k[8], 0,
	})
}

// ValidateProjection reports whether p is a finite 3x4 matrix.
func ValidateProjection(p mat.Matrix) error {
	if p == nil {
		return fmt.Errorf("%w: projection matrix is nil", ErrInvalidCalibration)
	}
	r, c := p.Dims()
	if r != 3 || c != 4 {
		return fmt.Errorf("%w: projection matrix is %dx%d, want 3x4", ErrInvalidCalibration, r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := p.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: projection matrix entry (%d,%d) is %v", ErrInvalidCalibration, i, j, v)
			}
		}
	}
	return nil
}

// ToCamera expresses a world point in the camera's canonical frame.
func ToCamera(world r3.Vec, c Calibration) (r3.Vec, error) {
	body, err := c.Reference.PointToFrame(world)
	if err != nil {
		return r3.Vec{}, err
	}
	return BodyToCamera(body), nil
}

// Project applies P to a canonical camera-frame point and normalises by the
// homogeneous coordinate. It returns nil when the point is at or behind the
// image plane or the result is not finite.
func Project(p r3.Vec, P mat.Matrix) *Pixel {
	if p.Z <= 0 || P == nil {
		return nil
	}
	var h mat.VecDense
	h.MulVec(P, mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1}))
	w := h.AtVec(2)
	if w == 0 {
		return nil
	}
	u, v := h.AtVec(0)/w, h.AtVec(1)/w
	if math.IsNaN(u) || math.IsInf(u, 0) || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &Pixel{U: u, V: v}
}

// Waypoint is a future position in a named frame with its optional image
// projection.
type Waypoint struct {
	Frame string
	Point r3.Vec
	Pixel *Pixel
}

// WaypointFrameCamera names the canonical camera frame in exported
// waypoints.
const WaypointFrameCamera = "camera"

// ProjectWaypoint maps a world position through the calibration.
func ProjectWaypoint(world r3.Vec, c Calibration) (Waypoint, error) {
	cam, err := ToCamera(world, c)
	if err != nil {
		return Waypoint{}, err
	}
	return Waypoint{Frame: WaypointFrameCamera, Point: cam, Pixel: Project(cam, c.P)}, nil
}
