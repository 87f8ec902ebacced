// Package splitter turns multi-question documents into one package per
// question, aligned across languages and paired with the answer key.
package splitter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/SAP-F-2025/exam-service/internal/docx"
	"github.com/SAP-F-2025/exam-service/internal/models"
)

// Question is one emitted question: a package per supplied language and the
// correct answer.
type Question struct {
	Documents map[models.Language][]byte
	Answer    models.AnswerSymbol
}

// source is one parsed language document.
type source struct {
	lang     models.Language
	pkg      *docx.Package
	body     *docx.Body
	segments [][]docx.Block
}

// NormalizeAnswerKey strips whitespace, upper-cases and validates the key.
func NormalizeAnswerKey(key string) ([]models.AnswerSymbol, error) {
	var out []models.AnswerSymbol
	pos := 0
	for _, r := range key {
		if unicode.IsSpace(r) {
			continue
		}
		sym := models.AnswerSymbol(strings.ToUpper(string(r)))
		if !sym.IsValid() {
			return nil, &AnswerKeyError{Position: pos, Char: r}
		}
		out = append(out, sym)
		pos++
	}
	return out, nil
}

// Split parses every supplied document, checks that segment counts agree
// with each other and with the answer key, and emits one package per
// question per language. Missing or empty documents are skipped. Block text
// is compared trimmed, so surrounding whitespace in the delimiter is ignored.
func Split(docs map[models.Language][]byte, answerKey, delimiter string) ([]Question, error) {
	if strings.TrimSpace(delimiter) == "" {
		return nil, ErrDelimiterRequired
	}
	delimiter = strings.TrimSpace(delimiter)

	answers, err := NormalizeAnswerKey(answerKey)
	if err != nil {
		return nil, err
	}

	sources, err := parseSources(docs, delimiter)
	if err != nil {
		return nil, err
	}

	count, err := agreedCount(sources)
	if err != nil {
		return nil, err
	}
	if count != len(answers) {
		return nil, &CountMismatchError{
			Languages:   languagesOf(sources),
			Counts:      []int{count},
			AnswerCount: len(answers),
			answerCheck: true,
		}
	}

	out := make([]Question, count)
	for i := 0; i < count; i++ {
		q := Question{
			Documents: make(map[models.Language][]byte, len(sources)),
			Answer:    answers[i],
		}
		for _, src := range sources {
			parts, err := src.pkg.Minimal(src.body.Document(src.segments[i]))
			if err != nil {
				return nil, &LanguageError{Language: src.lang, Err: fmt.Errorf("question %d: %w", i+1, err)}
			}
			raw, err := docx.Write(parts)
			if err != nil {
				return nil, &LanguageError{Language: src.lang, Err: fmt.Errorf("question %d: %w", i+1, err)}
			}
			q.Documents[src.lang] = raw
		}
		out[i] = q
	}

	return out, nil
}

// Segment opens a single document and returns its segments. It is the
// building block of Split and is used for previews.
func Segment(raw []byte, delimiter string) (*docx.Package, *docx.Body, [][]docx.Block, error) {
	pkg, err := docx.Open(raw)
	if err != nil {
		return nil, nil, nil, err
	}
	body, err := pkg.Body()
	if err != nil {
		return nil, nil, nil, err
	}
	return pkg, body, body.Segments(delimiter), nil
}

func parseSources(docs map[models.Language][]byte, delimiter string) ([]source, error) {
	var sources []source
	for _, lang := range models.Languages {
		raw := docs[lang]
		if len(raw) == 0 {
			continue
		}
		pkg, body, segments, err := Segment(raw, delimiter)
		if err != nil {
			return nil, &LanguageError{Language: lang, Err: err}
		}
		sources = append(sources, source{lang: lang, pkg: pkg, body: body, segments: segments})
	}
	return sources, nil
}

// agreedCount returns the common segment count, 0 when nothing was supplied.
func agreedCount(sources []source) (int, error) {
	if len(sources) == 0 {
		return 0, nil
	}

	counts := make([]int, len(sources))
	distinct := make(map[int]struct{}, len(sources))
	for i, src := range sources {
		counts[i] = len(src.segments)
		distinct[counts[i]] = struct{}{}
	}
	if len(distinct) > 1 {
		return 0, &CountMismatchError{Languages: languagesOf(sources), Counts: counts}
	}
	return counts[0], nil
}

func languagesOf(sources []source) []models.Language {
	out := make([]models.Language, len(sources))
	for i, src := range sources {
		out[i] = src.lang
	}
	return out
}
