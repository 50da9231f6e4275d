package bake

import "errors"

var (
	// ErrMismatchedInputs is returned by Bake when the job and source
	// slices differ in length.
	ErrMismatchedInputs = errors.New("bake: jobs and mesh sources differ in length")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("bake: baker closed")

	// ErrNoMaterial is returned by BakeProperty for a request without a
	// material.
	ErrNoMaterial = errors.New("bake: no material")
)
