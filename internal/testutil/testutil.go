// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// VecTolerance is the default per-axis tolerance for vector comparisons.
const VecTolerance = 1e-6

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// VecNear reports whether every component of got is within tol of want.
func VecNear(got, want r3.Vec, tol float64) bool {
	return math.Abs(got.X-want.X) <= tol &&
		math.Abs(got.Y-want.Y) <= tol &&
		math.Abs(got.Z-want.Z) <= tol
}

// AssertVecNear checks that got is within tol of want on every axis.
func AssertVecNear(t testing.TB, got, want r3.Vec, tol float64) {
	t.Helper()
	if !VecNear(got, want, tol) {
		t.Errorf("vector = (%.9f, %.9f, %.9f), want (%.9f, %.9f, %.9f) ±%g",
			got.X, got.Y, got.Z, want.X, want.Y, want.Z, tol)
	}
}

// AssertAngleNear compares two angles in radians modulo 2π.
func AssertAngleNear(t testing.TB, got, want, tol float64) {
	t.Helper()
	d := math.Remainder(got-want, 2*math.Pi)
	if math.Abs(d) > tol {
		t.Errorf("angle = %.9f rad, want %.9f rad ±%g", got, want, tol)
	}
}

// Timestamps returns n timestamps starting at start with a fixed step.
func Timestamps(start, step float64, n int) []float64 {
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = start + float64(i)*step
	}
	return ts
}
