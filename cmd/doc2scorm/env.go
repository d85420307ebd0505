package main

import (
	"io"
	"os"
	"os/exec"
	"time"

	doc2scorm "github.com/alnah/go-doc2scorm"
	"github.com/alnah/go-doc2scorm/internal/player"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now    func() time.Time
	Stdout io.Writer
	Stderr io.Writer
	// LookupEnv reads DOC2SCORM_* overrides.
	LookupEnv func(string) (string, bool)
	// LookPath locates the PDF tools for doctor.
	LookPath func(string) (string, error)
	// BrowserPath locates Chrome for doctor.
	BrowserPath func() (string, bool)
	// Rasterizer replaces the poppler tools when set.
	Rasterizer doc2scorm.Rasterizer
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:         time.Now,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		LookupEnv:   os.LookupEnv,
		LookPath:    exec.LookPath,
		BrowserPath: player.BrowserAvailable,
	}
}

// getenv reads one variable through LookupEnv, "" when unset.
func (e *Environment) getenv(key string) string {
	v, _ := e.LookupEnv(key)
	return v
}
