package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/chzyer/readline"
)

// Prompter reads one answer per call. Any error ends the session.
type Prompter interface {
	ReadLine(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}

type ReadlinePrompter struct {
	rl *readline.Instance
}

func NewReadlinePrompter(historyFile string) (*ReadlinePrompter, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &ReadlinePrompter{rl: rl}, nil
}

func (p *ReadlinePrompter) ReadLine(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	return strings.TrimSpace(line), err
}

func (p *ReadlinePrompter) ReadPassword(prompt string) (string, error) {
	b, err := p.rl.ReadPassword(prompt)
	return string(b), err
}

func (p *ReadlinePrompter) Close() error {
	return p.rl.Close()
}

// TokenStore keeps the session token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

type FileTokenStore struct {
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// DefaultStateDir is where the token and history files live.
func DefaultStateDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "wheelwise"), nil
}

func (s *FileTokenStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	return strings.TrimSpace(string(data)), err
}

func (s *FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, []byte(token), 0o600)
}

func (s *FileTokenStore) Clear() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Redirector records a sign-in redirect requested by the session gate. The
// app consumes it before showing the next screen.
type Redirector struct {
	pending atomic.Bool
}

func NewRedirector() *Redirector {
	return &Redirector{}
}

func (r *Redirector) Redirect() {
	r.pending.Store(true)
}

func (r *Redirector) take() bool {
	return r.pending.Swap(false)
}
