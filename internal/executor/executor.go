// Package executor turns source text into a bounded subprocess invocation.
// Each language is one strategy; the supervisor enforces wall-clock, CPU and
// memory ceilings on whatever the strategy spawns.
package executor

import (
	"fmt"
	"os/exec"
	"time"
)

// Execution outcome statuses. Timeout and resource-limit are valid outcomes
// of a valid request, not service errors.
const (
	StatusOK            = "ok"
	StatusTimeout       = "timeout"
	StatusResourceLimit = "resource_limit"
)

// KilledExitCode is the exit-code sentinel reported when the supervisor
// terminated the process instead of it exiting on its own.
const KilledExitCode = -1

type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Status   string
	Duration time.Duration
}

// Executor builds the subprocess invocation for one language. Command writes
// the snippet into workdir, pins the command's working directory there, and
// returns a cleanup that removes the snippet file again.
type Executor interface {
	Language() string
	Command(workdir, code string) (*exec.Cmd, func(), error)
}

// Options shared by all executors.
type Options struct {
	// Env is the full environment for the child. Nothing from the service
	// process is inherited.
	Env []string
}

// MinimalEnv returns the whitelisted environment for executed code. When
// networkDisabled is set, CODEEXEC_NETWORK_DISABLED=1 signals the sandbox
// image; actual enforcement is a network-policy concern.
func MinimalEnv(networkDisabled bool) []string {
	env := []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=/tmp",
		"LANG=C.UTF-8",
		"TERM=dumb",
	}
	if networkDisabled {
		env = append(env, "CODEEXEC_NETWORK_DISABLED=1")
	}
	return env
}

// ForLanguages builds the closed executor set for the configured languages.
// The set is fixed at startup; it is a security boundary, not a plugin
// surface.
func ForLanguages(langs []string, opts Options) (map[string]Executor, error) {
	executors := make(map[string]Executor, len(langs))
	for _, lang := range langs {
		switch lang {
		case "python":
			executors[lang] = NewPython(opts)
		case "bash":
			executors[lang] = NewBash(opts)
		default:
			return nil, fmt.Errorf("no executor for language: %s", lang)
		}
	}
	return executors, nil
}
