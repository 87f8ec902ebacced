// Command docsplit splits question documents into one .docx per question
// without a database or storage backend.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/exam-service/internal/models"
	"github.com/SAP-F-2025/exam-service/internal/splitter"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	documents map[models.Language]string
	answers   string
	delimiter string
	outDir    string
}

func rootCmd() *cobra.Command {
	opts := options{documents: make(map[models.Language]string)}
	paths := make(map[models.Language]*string, len(models.Languages))

	cmd := &cobra.Command{
		Use:          "docsplit",
		Short:        "Split question documents into one file per question",
		Example:      "  docsplit --uz math_uz.docx --ru math_ru.docx --answers ABCDA --out ./questions",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for lang, p := range paths {
				if *p != "" {
					opts.documents[lang] = *p
				}
			}
			written, err := run(opts)
			if err != nil {
				return err
			}
			slog.Info("questions written", "count", written, "dir", opts.outDir)
			return nil
		},
	}

	f := cmd.Flags()
	for _, lang := range models.Languages {
		paths[lang] = f.String(string(lang), "", fmt.Sprintf("%s document path", lang.Label()))
	}
	f.StringVarP(&opts.answers, "answers", "a", "", "Answer key, one letter per question (required)")
	f.StringVarP(&opts.delimiter, "delimiter", "d", "###", "Paragraph text separating questions")
	f.StringVarP(&opts.outDir, "out", "o", ".", "Output directory")
	_ = cmd.MarkFlagRequired("answers")

	return cmd
}

// run writes q_<lang>_<n>.docx files and returns the number of questions
func run(opts options) (int, error) {
	docs := make(map[models.Language][]byte, len(opts.documents))
	for lang, path := range opts.documents {
		data, err := readFile(path)
		if err != nil {
			return 0, fmt.Errorf("read %s document: %w", lang, err)
		}
		docs[lang] = data
	}

	questions, err := splitter.Split(docs, opts.answers, opts.delimiter)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	for i, q := range questions {
		for _, lang := range models.Languages {
			data, ok := q.Documents[lang]
			if !ok {
				continue
			}
			name := filepath.Join(opts.outDir, fmt.Sprintf("q_%s_%d.docx", lang, i+1))
			if err := os.WriteFile(name, data, 0o644); err != nil {
				return i, fmt.Errorf("write %s: %w", name, err)
			}
		}
		slog.Debug("question written", "n", i+1, "answer", q.Answer)
	}
	return len(questions), nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
