package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/chatvoice/internal/markdown"
	"github.com/dgnsrekt/chatvoice/internal/tts"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

var (
	speakClipboard bool
	speakWatch     string
	speakQuiet     bool

	speakCmd = &cobra.Command{
		Use:   "speak [TEXT|FILE|-]",
		Short: "Speak text, a markdown file, stdin or the clipboard",
		Long: paragraph(fmt.Sprintf("\n%s text aloud. Markdown is stripped first; code blocks and images are skipped. "+
			"Rendered audio is cached so repeating an answer is instant.", keyword("Speak"))),
		Example: paragraph("chatvoice speak \"Hello there.\"\nchatvoice speak answer.md\npbpaste | chatvoice speak\n" +
			"chatvoice speak --clipboard --voice nova\nchatvoice speak --watch reply.md"),
		Args: cobra.ArbitraryArgs,
		RunE: runSpeak,
	}
)

func init() {
	speakCmd.Flags().BoolVarP(&speakClipboard, "clipboard", "c", false, "speak the clipboard contents")
	speakCmd.Flags().StringVarP(&speakWatch, "watch", "w", "", "speak FILE again whenever it changes")
	speakCmd.Flags().BoolVarP(&speakQuiet, "quiet", "q", false, "do not show the status line")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	display := newStatusDisplay(os.Stderr, speakQuiet)
	defer display.done()

	eng, err := tts.Open(ctx, cfg, log.Default(), tts.WithStatusHook(display.update))
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	if speakWatch != "" {
		return watchFile(ctx, eng, speakWatch)
	}

	text, err := speechText(args)
	if err != nil {
		return err
	}
	if err := eng.Speak(ctx, text); err != nil {
		return err
	}
	if err := eng.Wait(ctx); err != nil {
		// interrupted
		eng.Stop()
	}
	return nil
}

// speechText picks the input: clipboard, "-" or piped stdin, a file, or the
// arguments themselves.
func speechText(args []string) (string, error) {
	if speakClipboard {
		s, err := clipboard.ReadAll()
		if err != nil {
			return "", fmt.Errorf("unable to read clipboard: %w", err)
		}
		return s, nil
	}

	switch {
	case len(args) == 1 && args[0] == "-":
		return readAll(os.Stdin)
	case len(args) == 0:
		if yes, err := stdinIsPipe(); err != nil {
			return "", err
		} else if yes {
			return readAll(os.Stdin)
		}
		return "", errors.New("nothing to speak: pass text, a file, - or --clipboard")
	case len(args) == 1:
		if st, err := os.Stat(args[0]); err == nil && !st.IsDir() {
			return readFile(args[0])
		}
	}
	return strings.Join(args, " "), nil
}

func stdinIsPipe() (bool, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return false, nil
	}
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func readAll(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("unable to read from reader: %w", err)
	}
	return string(markdown.RemoveFrontmatter(b)), nil
}

func readFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("unable to open file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return readAll(f)
}

// watchFile speaks path, then again whenever it is written, at most once a
// second. Each new version interrupts the one being spoken.
func watchFile(ctx context.Context, eng *tts.Engine, path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("unable to get absolute path: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to watch file: %w", err)
	}
	defer w.Close() //nolint:errcheck

	// editors often replace the file instead of writing it
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("unable to watch %s: %w", filepath.Dir(path), err)
	}

	speakFile := func() {
		text, err := readFile(path)
		if err != nil {
			log.Warn("Could not read watched file", "path", path, "err", err)
			return
		}
		eng.SpeakAsync(text)
	}

	limiter := rate.NewLimiter(rate.Every(time.Second), 1)
	speakFile()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				return nil
			}
		drain:
			for {
				select {
				case <-w.Events:
				default:
					break drain
				}
			}
			log.Debug("Watched file changed", "path", path)
			speakFile()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("File watcher error", "err", err)
		}
	}
}
