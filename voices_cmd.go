package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/chatvoice/internal/native"
	"github.com/dgnsrekt/chatvoice/internal/voice"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	voicesNative bool

	voicesCmd = &cobra.Command{
		Use:     "voices [QUERY]",
		Short:   "List the available voices",
		Long:    paragraph(fmt.Sprintf("\nList the %s voices, optionally fuzzy-filtered by QUERY. With --native, list the system speech voices used as a fallback.", keyword("built-in"))),
		Example: paragraph("chatvoice voices\nchatvoice voices deep\nchatvoice voices --native"),
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if voicesNative {
				return listNativeVoices(cmd.Context())
			}
			profiles := voice.Catalog()
			if len(args) == 1 {
				profiles = filterProfiles(profiles, args[0])
			}
			if len(profiles) == 0 {
				fmt.Println("No voices match.")
				return nil
			}
			fmt.Print(renderVoices(profiles, cfg.Voice, termWidth()))
			return nil
		},
	}
)

func init() {
	voicesCmd.Flags().BoolVarP(&voicesNative, "native", "n", false, "list system speech voices")
}

// filterProfiles fuzzy-matches query against each profile's id, name,
// gender and description, best match first.
func filterProfiles(ps []voice.Profile, query string) []voice.Profile {
	src := make([]string, len(ps))
	for i, p := range ps {
		src[i] = strings.Join([]string{p.ID, p.DisplayName, p.Gender, p.Description}, " ")
	}
	matches := fuzzy.Find(query, src)
	out := make([]voice.Profile, 0, len(matches))
	for _, m := range matches {
		out = append(out, ps[m.Index])
	}
	return out
}

func renderVoices(ps []voice.Profile, current string, width int) string {
	var b strings.Builder
	for _, p := range ps {
		marker := "  "
		if p.ID == current {
			marker = keyword("* ")
		}
		fmt.Fprintf(&b, "%s%s %s %s\n", marker, keyword(fmt.Sprintf("%-8s", p.ID)), p.DisplayName, faint("("+strings.ToLower(p.Gender)+")"))
		if p.Description != "" {
			b.WriteString(indent.String(wordwrap.String(p.Description, max(width-6, 20)), 4))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func listNativeVoices(ctx context.Context) error {
	eng := native.NewExec(native.ExecOptions{
		Backend: cfg.Fallback.Backend,
		Logger:  log.Default().WithPrefix("native"),
	})
	if !eng.Available() {
		return native.ErrNoNativeEngine
	}
	vs, err := eng.Voices(ctx)
	if err != nil {
		return err
	}
	best, ok := native.SelectVoice(vs, voice.Lookup(cfg.Voice), cfg.Language)

	fmt.Println(heading(fmt.Sprintf("%s voices", eng.Name())))
	for _, v := range vs {
		marker := "  "
		if ok && v.ID == best.ID {
			marker = keyword("* ")
		}
		detail := v.Language
		if v.Gender != "" {
			detail += ", " + v.Gender
		}
		fmt.Printf("%s%s %s\n", marker, v.Name, faint("("+detail+")"))
	}
	if ok {
		fmt.Println(faint(fmt.Sprintf("\n* used in place of %q", cfg.Voice)))
	}
	return nil
}

// termWidth is the stdout width, capped at 120, or 80 when unknown.
func termWidth() int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return 80
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return min(w, 120)
}
