package executor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const bashSnippet = "snippet.sh"

// Bash runs snippets as shell scripts. The script gets a shebang when the
// snippet does not bring its own.
type Bash struct {
	opts Options
}

func NewBash(opts Options) *Bash {
	return &Bash{opts: opts}
}

func (b *Bash) Language() string { return "bash" }

func (b *Bash) Command(workdir, code string) (*exec.Cmd, func(), error) {
	content := code
	if !strings.HasPrefix(code, "#!/") {
		content = "#!/bin/bash\n" + code
	}

	script := filepath.Join(workdir, bashSnippet)
	if err := os.WriteFile(script, []byte(content), 0o700); err != nil {
		return nil, nil, fmt.Errorf("writing snippet: %w", err)
	}

	cmd := exec.Command("bash", bashSnippet)
	cmd.Dir = workdir
	cmd.Env = b.opts.Env

	cleanup := func() { os.Remove(script) }
	return cmd, cleanup, nil
}
