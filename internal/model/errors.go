package model

import "errors"

// ErrInvalidConfig is the root of every configuration error (bad budgets, bad rules).
// Callers test for it with errors.Is.
var ErrInvalidConfig = errors.New("invalid configuration")
