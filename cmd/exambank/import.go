package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/store"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import questions from JSON files into the question bank",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	addDBFlags(f)
	f.Bool("strict-single-choice", true, "Reject single-choice questions with several correct answers")
	addLogFlags(f)
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	v, db, err := openStore(cmd)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	stats, err := loadQuestions(cmd.Context(), db, args, v.GetBool("strict-single-choice"))
	if err != nil {
		return err
	}
	total, err := db.QuestionCount(cmd.Context())
	if err != nil {
		return fmt.Errorf("count questions: %w", err)
	}
	slog.Info("import finished",
		"files_imported", stats.files,
		"files_skipped", stats.skipped,
		"questions_added", stats.questions,
		"questions_total", total,
	)
	return nil
}

type importStats struct {
	files     int
	skipped   int
	questions int
}

// loadQuestions imports each file once. A file whose content changed since
// its last import is skipped so existing exams keep their questions.
func loadQuestions(ctx context.Context, db *store.Store, paths []string, strict bool) (importStats, error) {
	var stats importStats
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return stats, fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(ctx, path)
		if err != nil {
			return stats, fmt.Errorf("check import status for %s: %w", path, err)
		}

		if storedHash == hash {
			slog.Info("questions file unchanged, skipping", "path", path)
			stats.skipped++
			continue
		}
		if storedHash != "" {
			slog.Warn("questions file changed since last import, skipping to avoid breaking existing exams",
				"path", path)
			stats.skipped++
			continue
		}

		var questions []model.QuestionImport
		if err := json.Unmarshal(data, &questions); err != nil {
			return stats, fmt.Errorf("parse %s: %w", path, err)
		}
		for i := range questions {
			if err := questions[i].Validate(strict); err != nil {
				return stats, fmt.Errorf("%s: question %d: %w", path, i+1, err)
			}
		}

		if err := db.ImportQuestions(ctx, path, hash, questions); err != nil {
			return stats, fmt.Errorf("import %s: %w", path, err)
		}
		stats.files++
		stats.questions += len(questions)
		slog.Info("imported questions", "path", path, "count", len(questions))
	}

	return stats, nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
