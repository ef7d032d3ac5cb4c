package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/adewale-ajadi/exam-extractor/constants"
	"github.com/adewale-ajadi/exam-extractor/internal/common"
	"github.com/adewale-ajadi/exam-extractor/internal/credentials"
	"github.com/adewale-ajadi/exam-extractor/internal/entity"
	"github.com/adewale-ajadi/exam-extractor/internal/export"
	"github.com/adewale-ajadi/exam-extractor/internal/llm"
	"github.com/adewale-ajadi/exam-extractor/internal/llm/claude"
	"github.com/adewale-ajadi/exam-extractor/internal/llm/gemini"
	"github.com/adewale-ajadi/exam-extractor/internal/pipeline"
	"github.com/adewale-ajadi/exam-extractor/internal/progress"
	"github.com/adewale-ajadi/exam-extractor/internal/rasterize"
	repo "github.com/adewale-ajadi/exam-extractor/internal/repository"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		pdf        = flag.String("pdf", "", "exam PDF to process (required)")
		courseCode = flag.String("course", "", "course code, e.g. CS101 (required with --save)")
		courseName = flag.String("course-name", "", "course display name (optional)")
		examName   = flag.String("exam", "", "exam name (defaults to the PDF file name)")
		year       = flag.Int("year", time.Now().Year(), "exam year")
		mode       = flag.String("mode", "", "pipeline mode: two-pass or single-pass (default from config)")
		provider   = flag.String("provider", "", "model provider: gemini or claude (default from config)")
		out        = flag.String("out", "", "output XLSX file path (optional, defaults next to the PDF)")
		save       = flag.Bool("save", false, "persist questions to the configured database")
		inmem      = flag.Bool("inmem", false, "use in-memory SQLite database")
		configPath = flag.String("config", "", "optional YAML config overlay")
	)
	flag.Parse()

	// Validate required flags
	if *pdf == "" {
		printError("Error: --pdf is required\n")
		os.Exit(1)
	}
	if *save && *courseCode == "" {
		printError("Error: --course is required with --save\n")
		os.Exit(1)
	}
	if *examName == "" {
		base := filepath.Base(*pdf)
		*examName = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*pdf), *examName+".xlsx")
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("run.accepted", "pdf", *pdf, "status", string(constants.RunStatusQueued))

	// Load configuration, flags win over env and file
	cfg := common.LoadConfig()
	if *configPath != "" {
		if err := cfg.ApplyFile(*configPath); err != nil {
			logger.Error("failed to load config file", "path", *configPath, "error", err)
			os.Exit(1)
		}
	}
	if *mode != "" {
		cfg.Pipeline.Mode = *mode
	}
	if *provider != "" {
		cfg.LLM.Provider = *provider
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	pipelineMode, err := pipeline.ParseMode(cfg.Pipeline.Mode)
	if err != nil {
		logger.Error("invalid pipeline mode", "error", err)
		os.Exit(1)
	}

	// Credential pool and model caller
	pool, err := credentials.NewPool(cfg.LLM.APIKeys)
	if err != nil {
		logger.Error("failed to build credential pool", "error", err)
		os.Exit(1)
	}

	var caller llm.ModelCaller
	switch cfg.LLM.Provider {
	case "claude":
		caller = claude.NewClient(claude.Config{
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
			Timeout:   cfg.LLM.Timeout,
		}, logger)
	case "gemini":
		caller = gemini.NewClient(gemini.Config{
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger)
	default:
		logger.Error("unknown provider", "provider", cfg.LLM.Provider)
		os.Exit(1)
	}
	logger.Info("model client initialized", "provider", cfg.LLM.Provider, "credentials", pool.Size())

	executor := llm.NewExecutor(pool, caller, cfg.LLM.RetryBackoff, logger)
	settings := llm.GenerationSettings{
		Temperature: cfg.LLM.Temperature,
		TopK:        cfg.LLM.TopK,
		TopP:        cfg.LLM.TopP,
		MaxTokens:   cfg.LLM.MaxTokens,
	}

	// Rasterize the document
	rasterizer := rasterize.NewRasterizer(rasterize.Config{
		Pdftoppm: cfg.Raster.Pdftoppm,
		DPI:      cfg.Raster.DPI,
		MaxPages: cfg.Raster.MaxPages,
	}, logger)

	logger.Info("rendering pages", "pdf", *pdf)
	pages, err := rasterizer.Render(ctx, *pdf)
	if err != nil {
		logger.Error("failed to render PDF", "pdf", *pdf, "error", err)
		os.Exit(1)
	}

	// Run the pipeline
	orch := pipeline.NewOrchestrator(
		pipeline.NewStructuralPass(executor, settings, logger),
		pipeline.NewExtractionPass(executor, settings, logger),
		pipeline.Options{
			Mode:            pipelineMode,
			StructuralDelay: cfg.Pipeline.StructuralDelay,
			ExtractionDelay: cfg.Pipeline.ExtractionDelay,
		},
		progress.NewLogSink(logger),
		logger,
	)

	questions, runErr := orch.Run(ctx, filepath.Base(*pdf), pages)
	if runErr != nil {
		// Interrupted runs still export whatever was extracted.
		logger.Error("run interrupted", "error", runErr, "questions", len(questions))
	}
	if len(questions) == 0 {
		logger.Error("no questions extracted", "status", string(constants.RunStatusFailed))
		os.Exit(1)
	}

	// Export to XLSX
	xlsxBytes, err := export.QuestionsXLSX(questions)
	if err != nil {
		logger.Error("failed to render XLSX", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0644); err != nil {
		logger.Error("failed to write output file", "path", *out, "error", err)
		os.Exit(1)
	}

	status := constants.RunStatusExtractOK
	saved := 0
	if *save {
		saved, err = persist(ctx, cfg, *inmem, *courseCode, *courseName, *examName, *year, *pdf, questions, logger)
		if err != nil {
			logger.Error("failed to save questions", "error", err, "status", string(constants.RunStatusFailed))
			os.Exit(1)
		}
		status = constants.RunStatusSaveOK
	}

	logger.Info("extraction complete",
		"pages", len(pages),
		"questions", len(questions),
		"saved", saved,
		"status", string(status),
		"output_file", *out)

	fmt.Printf("Extraction complete!\n")
	fmt.Printf("- Pages processed: %d\n", len(pages))
	fmt.Printf("- Questions extracted: %d\n", len(questions))
	if *save {
		fmt.Printf("- Questions saved: %d\n", saved)
	}
	fmt.Printf("- Output: %s\n", *out)
}

// persist validates the batch, opens the configured store, and files the
// questions under course/exam.
func persist(ctx context.Context, cfg *common.Config, inmem bool, courseCode, courseName, examName string, year int, sourcePath string, questions []entity.ExtractedQuestion, logger *slog.Logger) (int, error) {
	valid, err := repo.ValidateBatch(repo.SaveBatch{
		CourseCode: courseCode,
		CourseName: courseName,
		ExamName:   examName,
		Year:       year,
		SourcePath: sourcePath,
		Questions:  questions,
	}, logger)
	if err != nil {
		return 0, err
	}

	if courseName == "" {
		courseName = courseCode
	}

	store, err := openStore(ctx, cfg, inmem, logger)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	course, err := store.UpsertCourse(ctx, courseCode, courseName)
	if err != nil {
		return 0, err
	}
	exam, err := store.CreateExam(ctx, course.ID, examName, year, sourcePath)
	if err != nil {
		return 0, err
	}
	return store.SaveQuestions(ctx, exam.ID, valid)
}

func openStore(ctx context.Context, cfg *common.Config, inmem bool, logger *slog.Logger) (repo.Store, error) {
	if inmem {
		return repo.OpenSQLite(ctx, ":memory:", logger)
	}
	switch cfg.Database.Driver {
	case "postgres":
		return repo.OpenPostgres(ctx, cfg.Database, logger)
	case "sqlite":
		return repo.OpenSQLite(ctx, cfg.Database.DSN, logger)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}
