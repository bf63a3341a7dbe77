package projection

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/metalabel/internal/geometry"
	"github.com/banshee-data/metalabel/internal/testutil"
)

// pinhole is a 1600x900 camera with focal length 1000 px.
var pinhole = [9]float64{
	1000, 0, 800,
	0, 1000, 450,
	0, 0, 1,
}

func mustCalibration(t *testing.T, origin r3.Vec, yaw float64) Calibration {
	t.Helper()
	ref, err := geometry.NewStaticFrame(origin, geometry.FromYaw(yaw))
	require.NoError(t, err)
	c, err := NewCalibration("main_camera", ref, IntrinsicsToProjection(pinhole))
	require.NoError(t, err)
	return c
}

func TestBodyToCamera(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body r3.Vec
		want r3.Vec
	}{
		{"forward is +Z", r3.Vec{X: 1}, r3.Vec{Z: 1}},
		{"left is -X", r3.Vec{Y: 1}, r3.Vec{X: -1}},
		{"up is -Y", r3.Vec{Z: 1}, r3.Vec{Y: -1}},
	}
	for _, tt := range tests {
		got := BodyToCamera(tt.body)
		testutil.AssertVecNear(t, got, tt.want, 1e-12)
		testutil.AssertVecNear(t, CameraToBody(got), tt.body, 1e-12)
	}
}

func TestProject_BehindCamera(t *testing.T) {
	t.Parallel()

	P := IntrinsicsToProjection(pinhole)
	for _, z := range []float64{0, -0.001, -5} {
		assert.Nil(t, Project(r3.Vec{X: 1, Y: 2, Z: z}, P), "z=%v", z)
	}
	assert.Nil(t, Project(r3.Vec{Z: 1}, nil))
}

func TestProject_Pinhole(t *testing.T) {
	t.Parallel()

	P := IntrinsicsToProjection(pinhole)
	px := Project(r3.Vec{X: 0, Y: 0, Z: 10}, P)
	require.NotNil(t, px)
	assert.InDelta(t, 800, px.U, 1e-9)
	assert.InDelta(t, 450, px.V, 1e-9)

	px = Project(r3.Vec{X: 1, Y: -0.5, Z: 10}, P)
	require.NotNil(t, px)
	assert.InDelta(t, 900, px.U, 1e-9)
	assert.InDelta(t, 400, px.V, 1e-9)
}

func TestProject_DegenerateHomogeneous(t *testing.T) {
	t.Parallel()

	P := mat.NewDense(3, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 0, 0,
	})
	assert.Nil(t, Project(r3.Vec{X: 1, Y: 1, Z: 1}, P))
}

func TestValidateProjection(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateProjection(IntrinsicsToProjection(pinhole)))
	assert.True(t, errors.Is(ValidateProjection(nil), ErrInvalidCalibration))
	assert.True(t, errors.Is(ValidateProjection(mat.NewDense(3, 3, nil)), ErrInvalidCalibration))

	bad := IntrinsicsToProjection(pinhole)
	bad.Set(1, 1, math.NaN())
	assert.True(t, errors.Is(ValidateProjection(bad), ErrInvalidCalibration))

	_, err := NewCalibration("cam", geometry.World(), bad)
	assert.Error(t, err)
}

func TestNewCalibration_CopiesMatrix(t *testing.T) {
	t.Parallel()

	P := IntrinsicsToProjection(pinhole)
	c, err := NewCalibration("cam", geometry.World(), P)
	require.NoError(t, err)
	P.Set(0, 0, 1)
	assert.Equal(t, 1000.0, c.P.At(0, 0))
	assert.True(t, c.Reference.IsStatic())
}

func TestProjectWaypoint(t *testing.T) {
	t.Parallel()

	// Camera at (10, 5, 1.5) facing +Y in world (yaw 90°).
	c := mustCalibration(t, r3.Vec{X: 10, Y: 5, Z: 1.5}, math.Pi/2)

	// 20 m ahead of the camera, 2 m to its right, level with it.
	ahead := r3.Vec{X: 12, Y: 25, Z: 1.5}
	wp, err := ProjectWaypoint(ahead, c)
	require.NoError(t, err)
	assert.Equal(t, WaypointFrameCamera, wp.Frame)
	testutil.AssertVecNear(t, wp.Point, r3.Vec{X: 2, Y: 0, Z: 20}, 1e-9)
	require.NotNil(t, wp.Pixel)
	assert.InDelta(t, 900, wp.Pixel.U, 1e-6)
	assert.InDelta(t, 450, wp.Pixel.V, 1e-6)

	// Behind the camera: the 3D waypoint is kept, the pixel is not.
	behind := r3.Vec{X: 10, Y: -5, Z: 1.5}
	wp, err = ProjectWaypoint(behind, c)
	require.NoError(t, err)
	testutil.AssertVecNear(t, wp.Point, r3.Vec{Z: -10}, 1e-9)
	assert.Nil(t, wp.Pixel)
}

func TestProjectWaypoint_BadReference(t *testing.T) {
	t.Parallel()

	c := Calibration{Sensor: "cam", P: IntrinsicsToProjection(pinhole)}
	_, err := ProjectWaypoint(r3.Vec{X: 1}, c)
	var gerr *geometry.GeometryError
	assert.True(t, errors.As(err, &gerr))
}
