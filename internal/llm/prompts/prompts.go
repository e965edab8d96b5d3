// Package prompts renders the study tip prompts sent to the LLM.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

// maxFieldRunes caps each text field copied into a prompt.
const maxFieldRunes = 2000

var tagRegex = regexp.MustCompile(`(?i)</?\s*(exam-question|correct-answers|student-answers|system-instructions)\b[^>]*>`)

// Variant selects the study tip prompt style.
type Variant string

const (
	// VariantConcise asks for a one or two sentence tip.
	VariantConcise Variant = "concise"
	// VariantDetailed asks for a short explanatory paragraph.
	VariantDetailed Variant = "detailed"
)

var validVariants = map[Variant]bool{
	VariantConcise:  true,
	VariantDetailed: true,
}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Variant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[Variant(v)]
}

// TipData holds template data for study tip prompts.
type TipData struct {
	LanguageName   string
	QuestionText   string
	CorrectAnswers []string
	YourAnswers    []string
}

// Load parses the embedded templates. It is safe to call more than once.
func Load() error {
	loadOnce.Do(func() {
		templates = make(map[Variant]*template.Template)
		for v := range validVariants {
			file := "templates/tip_" + string(v) + ".txt"
			content, err := templateFS.ReadFile(file)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", file, err)
				return
			}
			tmpl, err := template.New(string(v)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
				return
			}
			templates[v] = tmpl
		}
	})
	return loadErr
}

// BuildTipPrompt renders the study tip prompt for variant.
func BuildTipPrompt(variant Variant, data TipData) (string, error) {
	if err := Load(); err != nil {
		return "", err
	}
	tmpl, ok := templates[variant]
	if !ok {
		return "", fmt.Errorf("invalid prompt variant: %s", variant)
	}

	data.QuestionText = sanitize(data.QuestionText)
	data.CorrectAnswers = sanitizeAll(data.CorrectAnswers)
	data.YourAnswers = sanitizeAll(data.YourAnswers)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeAll(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if s := sanitize(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// sanitize strips prompt delimiter tags and truncates overly long text.
func sanitize(text string) string {
	text = tagRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > maxFieldRunes {
		runes := []rune(text)
		text = string(runes[:maxFieldRunes]) + " [truncated]"
	}
	return text
}
