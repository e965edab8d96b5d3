package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	mrand "math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/pavelanni/exambank/internal/auth"
	"github.com/pavelanni/exambank/internal/exam"
	"github.com/pavelanni/exambank/internal/handler"
	appI18n "github.com/pavelanni/exambank/internal/i18n"
	"github.com/pavelanni/exambank/internal/llm"
	"github.com/pavelanni/exambank/internal/llm/prompts"
	"github.com/pavelanni/exambank/internal/model"
	"github.com/pavelanni/exambank/internal/store"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	addDBFlags(f)
	f.StringP("lang", "l", "en", "Default feedback language (en, es)")
	f.String("jwt-secret", "", "HMAC secret for access tokens (random per process when empty)")
	f.Duration("token-ttl", 8*time.Hour, "Access token lifetime")
	f.String("admin-password", "", "Initial admin password (or set EXAMBANK_ADMIN_PASSWORD)")
	f.StringSlice("cors-origins", nil, "Allowed CORS origins (repeatable)")
	f.Float64("rate-limit", 5, "Exam generate/submit requests per second per client (0 = unlimited)")
	f.Int("rate-burst", 10, "Burst size for the per-client rate limit")
	f.IntP("default-questions", "n", 10, "Questions per exam when a request omits the count")
	f.Bool("strict-single-choice", true, "Reject single-choice questions with several correct answers on import")
	f.String("llm-url", "", "OpenAI-compatible API base URL for study tips (empty disables tips)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	f.String("hint-variant", string(prompts.VariantConcise), "Study tip prompt variant (concise, detailed)")
	f.Uint64("seed", 0, "Fixed seed for question selection (0 = random)")
	addLogFlags(f)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	v, db, err := openStore(cmd)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed default admin user if no users exist.
	if err := seedAdmin(ctx, db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	hintVariant := strings.ToLower(strings.TrimSpace(v.GetString("hint-variant")))
	if !prompts.IsValidVariant(hintVariant) {
		slog.Warn("invalid hint-variant, using concise", "variant", hintVariant)
		hintVariant = string(prompts.VariantConcise)
	}

	examCfg := model.ExamConfig{
		DefaultQuestions:   v.GetInt("default-questions"),
		Lang:               lang,
		StrictSingleChoice: v.GetBool("strict-single-choice"),
		HintVariant:        hintVariant,
	}

	var rng *mrand.Rand
	if seed := v.GetUint64("seed"); seed != 0 {
		rng = mrand.New(mrand.NewPCG(seed, seed))
		slog.Warn("using fixed selection seed", "seed", seed)
	}
	exams := exam.NewService(db, examCfg, rng)

	if llmURL := v.GetString("llm-url"); llmURL != "" {
		llmClient, err := llm.New(llmURL, v.GetString("llm-key"), v.GetString("llm-model"), hintVariant)
		if err != nil {
			return fmt.Errorf("create LLM client: %w", err)
		}
		if err := llmClient.Ping(ctx); err != nil {
			slog.Warn("LLM health check failed, study tips may be missing", "url", llmURL, "error", err)
		} else {
			slog.Info("LLM endpoint OK", "url", llmURL, "model", v.GetString("llm-model"))
		}
		exams.SetStudyTipper(llmClient)
	}

	secret := v.GetString("jwt-secret")
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		slog.Warn("no jwt-secret configured, tokens will not survive a restart")
	}
	tokens, err := auth.NewTokens(secret, v.GetDuration("token-ttl"))
	if err != nil {
		return fmt.Errorf("create token service: %w", err)
	}

	h := handler.New(db, exams, tokens, handler.Config{
		Exam:        examCfg,
		CORSOrigins: v.GetStringSlice("cors-origins"),
		RateLimit:   rate.Limit(v.GetFloat64("rate-limit")),
		RateBurst:   v.GetInt("rate-burst"),
	})

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	figure.NewFigure(appI18n.T(ctx, "AppTitle"), "", true).Print()
	slog.Info("starting server",
		"addr", addr,
		"db_driver", v.GetString("db-driver"),
		"lang", lang,
		"default_questions", examCfg.DefaultQuestions,
		"rate_limit", v.GetFloat64("rate-limit"),
		"study_tips", v.GetString("llm-url") != "",
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func seedAdmin(ctx context.Context, db *store.Store, password string) error {
	count, err := db.UserCount(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or EXAMBANK_ADMIN_PASSWORD env var")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(ctx, model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
