// Package gitlog runs git to produce the colorized commit history graph
// that git-log-html converts when no input is given.
package gitlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
)

// Format is the pretty format of each commit line.
const Format = "format:%C(bold blue)%h%C(reset) - %C(bold green)(%ar)%C(reset) %C(white)%s%C(reset) %C(dim white)- %an%C(reset)%C(bold yellow)%d%C(reset)"

// Args are the git arguments that produce the history.
var Args = []string{
	"log",
	"--graph",
	"--color=always",
	"--abbrev-commit",
	"--decorate",
	"--date=relative",
	"--format=" + Format,
	"--all",
}

// cachedGitEnv should never be accessed directly, only by calling `gitEnv()`.
var cachedGitEnv []string
var populateGitEnvOnce sync.Once

func gitEnv() []string {
	populateGitEnvOnce.Do(func() {
		// First is for git version before 2.32, the rest are to skip the user and system config.
		cachedGitEnv = append(os.Environ(),
			"GIT_CONFIG_NOGLOBAL=true",
			"GIT_CONFIG_GLOBAL=",
			"GIT_CONFIG_SYSTEM=",
			"LANG=C",
			"GIT_PAGER=cat",
		)
		cachedGitEnv = append(cachedGitEnv, gitConfigEnv(map[string]string{
			// GPG output would be interleaved with the graph.
			"log.showSignature": "false",
			"color.ui":          "always",
		})...)
	})
	return cachedGitEnv
}

// gitConfigEnv converts a map of key-value git config pairs into corresponding
// environment variables.
//
// See https://git-scm.com/docs/git-config#ENVIRONMENT for details on how git
// configs are set via environment variables.
func gitConfigEnv(gitConfig map[string]string) []string {
	// GIT_CONFIG_COUNT specifies how many key/value env var pairs to look for.
	res := []string{fmt.Sprintf("GIT_CONFIG_COUNT=%d", len(gitConfig))}

	keys := make([]string, 0, len(gitConfig))
	for k := range gitConfig {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for i, k := range keys {
		res = append(res,
			fmt.Sprintf("GIT_CONFIG_KEY_%d=%s", i, k),
			fmt.Sprintf("GIT_CONFIG_VALUE_%d=%s", i, gitConfig[k]))
	}
	return res
}

// Command returns the git command that writes the history of the
// repository in dir to its standard output.
func Command(ctx context.Context, dir string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", Args...)
	cmd.Dir = dir
	cmd.Env = gitEnv()
	return cmd
}

// History is the running git command. Reading it returns the history;
// Close waits for git to exit.
type History struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	eof    bool
}

// Open starts git in dir. The caller must Close the History.
func Open(ctx context.Context, dir string) (*History, error) {
	h, err := start(Command(ctx, dir))
	if err != nil {
		return nil, fmt.Errorf("failed to execute git command: git %s: %w", strings.Join(Args, " "), err)
	}
	return h, nil
}

func start(cmd *exec.Cmd) (*History, error) {
	h := &History{cmd: cmd}
	h.cmd.Stderr = &h.stderr
	stdout, err := h.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := h.cmd.Start(); err != nil {
		return nil, err
	}
	h.stdout = stdout
	return h, nil
}

func (h *History) Read(p []byte) (int, error) {
	n, err := h.stdout.Read(p)
	if err == io.EOF {
		h.eof = true
	}
	return n, err
}

// Close waits for git to exit. When the history was not read to the end,
// git is killed instead of being left blocked on a full pipe.
// A failed git command is returned with its standard error.
func (h *History) Close() error {
	if !h.eof {
		_ = h.cmd.Process.Kill()
		// the exit status of a killed git says nothing about the history
		_ = h.cmd.Wait()
		return nil
	}
	err := h.cmd.Wait()
	if errExit := (&exec.ExitError{}); errors.As(err, &errExit) {
		return fmt.Errorf("error running git %s: %w\n%s", Args[0], err, strings.TrimSpace(h.stderr.String()))
	}
	return err
}
