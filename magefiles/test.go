package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// postgresDSNEnv names the scratch database used by the postgres store tests.
const postgresDSNEnv = "TASKBOARD_TEST_POSTGRES_DSN"

const coverProfile = "coverage.out"

// Test groups test targets (all, unit, race, cover, postgres).
type Test mg.Namespace

// All runs every package test. Postgres tests skip without a DSN.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Unit runs the package tests verbosely with the cache disabled.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "-v", "-count=1", "./...")
}

// Race runs the tests with the race detector.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Cover writes a coverage profile and prints the per-function summary.
func (Test) Cover() error {
	if err := sh.RunV(binGo, "test", "-coverprofile="+coverProfile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+coverProfile)
}

// Postgres runs the postgres store tests against $TASKBOARD_TEST_POSTGRES_DSN.
// The tests drop and recreate the tasks table.
func (Test) Postgres() error {
	if os.Getenv(postgresDSNEnv) == "" {
		return fmt.Errorf("%s is not set", postgresDSNEnv)
	}
	return sh.RunV(binGo, "test", "-v", "-count=1", "./internal/postgres/...")
}
