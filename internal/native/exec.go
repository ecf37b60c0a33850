package native

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Backends in probe order for BackendAuto.
const (
	BackendAuto     = "auto"
	BackendEspeakNG = "espeak-ng"
	BackendEspeak   = "espeak"
	BackendSay      = "say"
	BackendNone     = "none"
)

// normalWPM is the speaking rate all supported programs treat as normal.
const normalWPM = 175

// stopGrace is how long an interrupted process gets before it is killed.
const stopGrace = 500 * time.Millisecond

// ExecOptions configures an Exec engine.
type ExecOptions struct {
	// Backend is one of the Backend constants. Empty means BackendAuto.
	Backend string
	// LookPath overrides exec.LookPath.
	LookPath func(string) (string, error)
	Logger   *log.Logger
}

// Exec speaks by running a speech program. Text is passed on stdin so it is
// never interpreted as flags.
type Exec struct {
	backend string
	path    string
	logger  *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewExec resolves the backend. The returned engine reports Available false
// when no program was found.
func NewExec(opts ExecOptions) *Exec {
	lookPath := opts.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("native")
	}

	e := &Exec{logger: logger}
	candidates := []string{BackendEspeakNG, BackendEspeak, BackendSay}
	switch opts.Backend {
	case "", BackendAuto:
	case BackendNone:
		candidates = nil
	default:
		candidates = []string{opts.Backend}
	}
	for _, bin := range candidates {
		if path, err := lookPath(bin); err == nil {
			e.backend, e.path = bin, path
			break
		}
	}
	if e.path == "" {
		logger.Debug("no speech program found", "tried", candidates)
	} else {
		logger.Debug("native speech ready", "backend", e.backend, "path", e.path)
	}
	return e
}

// Name returns the resolved backend or "none".
func (e *Exec) Name() string {
	if e.backend == "" {
		return BackendNone
	}
	return e.backend
}

// Available reports whether a speech program was found.
func (e *Exec) Available() bool {
	return e.path != ""
}

// Voices lists the program's voices.
func (e *Exec) Voices(ctx context.Context) ([]Voice, error) {
	if !e.Available() {
		return nil, ErrNoNativeEngine
	}
	var args []string
	parse := parseEspeakVoices
	if e.backend == BackendSay {
		args = []string{"-v", "?"}
		parse = parseSayVoices
	} else {
		args = []string{"--voices"}
	}
	out, err := exec.CommandContext(ctx, e.path, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("list %s voices: %w", e.backend, err)
	}
	return parse(out), nil
}

// Speak starts the utterance in the background. A previous utterance is
// cancelled first.
func (e *Exec) Speak(ctx context.Context, req Request) (<-chan struct{}, error) {
	if !e.Available() {
		return nil, ErrNoNativeEngine
	}
	e.Cancel()

	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := exec.CommandContext(ctx, e.path, e.args(req)...)
	cmd.Stdin = strings.NewReader(req.Text)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = stopGrace
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", e.backend, err)
	}

	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := cmd.Wait()
		if err != nil && ctx.Err() == nil {
			e.logger.Warn("native speech failed", "backend", e.backend, "err", err, "stderr", strings.TrimSpace(stderr.String()))
		}
		cancel()
	}()
	return done, nil
}

// Cancel interrupts the current utterance.
func (e *Exec) Cancel() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Exec) args(req Request) []string {
	rate := req.Rate
	if rate <= 0 {
		rate = 1
	}
	wpm := strconv.Itoa(int(rate * normalWPM))
	if e.backend == BackendSay {
		args := []string{"-r", wpm, "-f", "-"}
		if req.Voice != "" {
			args = append(args, "-v", req.Voice)
		}
		return args
	}
	args := []string{"-s", wpm, "--stdin"}
	if req.Voice != "" {
		args = append(args, "-v", req.Voice)
	}
	return args
}

// parseEspeakVoices reads `espeak-ng --voices` output:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US     (en 10)
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 4 || f[0] == "Pty" {
			continue
		}
		v := Voice{ID: f[1], Language: f[1], Name: strings.ReplaceAll(f[3], "_", " ")}
		if _, g, ok := strings.Cut(f[2], "/"); ok {
			switch strings.ToUpper(g) {
			case "M":
				v.Gender = "male"
			case "F":
				v.Gender = "female"
			}
		}
		voices = append(voices, v)
	}
	return voices
}

// parseSayVoices reads `say -v '?'` output:
//
//	Alex                en_US    # Most people recognize me by my voice.
//	Bad News            en_US    # The light you see at the end of the tunnel...
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		left, _, _ := strings.Cut(sc.Text(), "#")
		f := strings.Fields(left)
		if len(f) < 2 {
			continue
		}
		name := strings.Join(f[:len(f)-1], " ")
		voices = append(voices, Voice{
			ID:       name,
			Name:     name,
			Language: strings.ReplaceAll(f[len(f)-1], "_", "-"),
		})
	}
	return voices
}
