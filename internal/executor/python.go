package executor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const pythonSnippet = "snippet.py"

// Python runs snippets with the system python3 interpreter. The container
// image decides which third-party packages are importable; executed code
// cannot install its own.
type Python struct {
	opts Options
}

func NewPython(opts Options) *Python {
	return &Python{opts: opts}
}

func (p *Python) Language() string { return "python" }

func (p *Python) Command(workdir, code string) (*exec.Cmd, func(), error) {
	script := filepath.Join(workdir, pythonSnippet)
	if err := os.WriteFile(script, []byte(code), 0o644); err != nil {
		return nil, nil, fmt.Errorf("writing snippet: %w", err)
	}

	cmd := exec.Command("python3", pythonSnippet)
	cmd.Dir = workdir
	cmd.Env = p.opts.Env

	cleanup := func() { os.Remove(script) }
	return cmd, cleanup, nil
}
