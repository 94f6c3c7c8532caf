package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"bfevolve/internal/bf"
	"bfevolve/internal/evo"
	"bfevolve/internal/report"
	"bfevolve/internal/storage"
	api "bfevolve/pkg/bfevolve"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
	dbPath     = "bfevolve.db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "exec":
		return runExec(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "fitness":
		return runFitness(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "top":
		return runTop(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config path (.json, .yaml or .yml)")
	target := fs.String("target", api.DefaultTarget, "string the evolved program must print")
	genes := fs.String("genes", evo.DefaultGenes, "gene alphabet; repeat a symbol to bias it")
	filler := fs.String("filler", " ", "inert filler byte stripped when printing programs")
	population := fs.Int("pop", api.DefaultPopulation, "population size")
	eliteRatio := fs.Float64("elite-ratio", api.DefaultEliteRatio, "fraction of each generation copied unchanged")
	geneRate := fs.Uint64("gene-rate", api.DefaultGeneMutationRate, "per-gene mutation chance in percent")
	wDelete := fs.Uint64("w-delete", 20, "delete share of mutations (weights sum to 100)")
	wInsert := fs.Uint64("w-insert", 20, "insert share of mutations")
	wReplace := fs.Uint64("w-replace", 60, "replace share of mutations")
	selection := fs.String("selection", api.DefaultSelection, "parent selection: rank_window|tournament")
	breedFraction := fs.Float64("breed-fraction", api.DefaultBreedFraction, "top fraction eligible as parents for rank_window")
	tournamentSize := fs.Int("tournament-size", api.DefaultTournamentSize, "entrants per tournament")
	breeding := fs.String("breeding", api.DefaultBreeding, "breeding mode: crossover|mutation")
	initLen := fs.Int("init-len", api.DefaultInitialLength, "initial chromosome length")
	instrLimit := fs.Uint64("instr-limit", api.DefaultInstructionLimit, "per-program instruction budget")
	tapeSize := fs.Int("tape-size", bf.DefaultTapeSize, "tape cells per execution")
	overflow := fs.String("overflow", "wrap", "cell overflow policy: wrap|error")
	maxGens := fs.Int("max-gens", 0, "stop after this many generations (0 runs until solved)")
	seed := fs.Uint64("seed", 0, "rng seed (0 seeds from the clock)")
	workers := fs.Int("workers", 1, "concurrent evaluation workers")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPathFlag := fs.String("db-path", dbPath, "sqlite database path")
	reportEvery := fs.Int("report-every", 1, "print progress every N generations")
	quiet := fs.Bool("quiet", false, "suppress per-generation progress")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = api.RunRequest{
			Target:           *target,
			Genes:            *genes,
			Filler:           *filler,
			Population:       *population,
			EliteRatio:       api.Float64(*eliteRatio),
			GeneMutationRate: api.Uint64(*geneRate),
			DeleteWeight:     *wDelete,
			InsertWeight:     *wInsert,
			ReplaceWeight:    *wReplace,
			Selection:        *selection,
			BreedFraction:    *breedFraction,
			TournamentSize:   *tournamentSize,
			Breeding:         *breeding,
			InitialLength:    api.Int(*initLen),
			InstructionLimit: *instrLimit,
			TapeSize:         *tapeSize,
			Overflow:         *overflow,
			MaxGenerations:   *maxGens,
			Seed:             *seed,
			Workers:          *workers,
		}
	} else {
		overrideFromFlags(&req, setFlags, map[string]any{
			"target":          *target,
			"genes":           *genes,
			"filler":          *filler,
			"pop":             *population,
			"elite-ratio":     *eliteRatio,
			"gene-rate":       *geneRate,
			"w-delete":        *wDelete,
			"w-insert":        *wInsert,
			"w-replace":       *wReplace,
			"selection":       *selection,
			"breed-fraction":  *breedFraction,
			"tournament-size": *tournamentSize,
			"breeding":        *breeding,
			"init-len":        *initLen,
			"instr-limit":     *instrLimit,
			"tape-size":       *tapeSize,
			"overflow":        *overflow,
			"max-gens":        *maxGens,
			"seed":            *seed,
			"workers":         *workers,
		})
	}
	if setFlags["instr-limit"] && *instrLimit == 0 {
		return errors.New("instr-limit must be > 0 for evolved programs")
	}
	if !*quiet {
		req.Progress = os.Stderr
		req.ReportEvery = *reportEvery
	}

	client, err := newClient(*storeKind, *dbPathFlag)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Printf("run completed run_id=%s stop=%s generations=%d seed=%d best_fitness=%s\n",
		summary.RunID, summary.StopReason, summary.Generations, summary.Seed, report.FormatFitness(summary.FinalBestFitness))
	if summary.BestError != "" {
		fmt.Printf("best_error=%s\n", summary.BestError)
	} else {
		fmt.Printf("best_output=%q\n", summary.BestOutput)
	}
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	fmt.Println(report.FormatProgram([]byte(summary.BestProgram), summary.Filler, report.DefaultWidth))
	return nil
}

func runExec(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("exec", flag.ContinueOnError)
	program := fs.String("program", "", "program text to execute")
	file := fs.String("file", "", "read the program from a file ('-' for stdin)")
	instrLimit := fs.Uint64("instr-limit", 0, "instruction budget (0 is unbounded)")
	tapeSize := fs.Int("tape-size", bf.DefaultTapeSize, "tape cells")
	overflow := fs.String("overflow", "wrap", "cell overflow policy: wrap|error")
	raw := fs.Bool("raw", false, "write program output verbatim instead of key=value lines")
	if err := fs.Parse(args); err != nil {
		return err
	}

	text, err := programText(*program, *file, fs.Args())
	if err != nil {
		return err
	}

	client, err := newClient("memory", "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	res, err := client.Execute(ctx, api.ExecuteRequest{
		Program:          text,
		InstructionLimit: *instrLimit,
		TapeSize:         *tapeSize,
		Overflow:         *overflow,
	})
	if err != nil {
		if execErr, ok := bf.AsExecError(err); ok {
			return fmt.Errorf("exec failed error=%s instructions=%d position=%d", execErr.Kind, execErr.Instructions, execErr.Position)
		}
		return err
	}
	if *raw {
		_, err := os.Stdout.Write(res.Output)
		return err
	}
	fmt.Printf("output=%q\ninstructions=%d\n", res.Output, res.Instructions)
	return nil
}

func programText(program, file string, rest []string) (string, error) {
	sources := 0
	if program != "" {
		sources++
	}
	if file != "" {
		sources++
	}
	if len(rest) > 0 {
		sources++
	}
	if sources != 1 {
		return "", errors.New("exec requires exactly one of --program, --file or a positional program")
	}

	switch {
	case program != "":
		return program, nil
	case file == "-":
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	case file != "":
		data, err := os.ReadFile(file)
		return string(data), err
	default:
		return strings.Join(rest, " "), nil
	}
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := newClient("memory", "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, api.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		return writeJSON(items)
	}

	for _, item := range items {
		fmt.Printf("run_id=%s created_at=%s target=%q seed=%d pop=%d generations=%d stop=%s best_fitness=%s\n",
			item.RunID,
			item.CreatedAtUTC,
			item.Target,
			item.Seed,
			item.Population,
			item.Generations,
			item.StopReason,
			report.FormatFitness(item.FinalBestFitness),
		)
	}
	return nil
}

func runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run from run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPathFlag := fs.String("db-path", dbPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector("fitness", *runID, *latest); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := newClient(*storeKind, *dbPathFlag)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, api.FitnessHistoryRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		return writeJSON(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_fitness=%s\n", i, report.FormatFitness(best))
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run from run index")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPathFlag := fs.String("db-path", dbPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector("diagnostics", *runID, *latest); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := newClient(*storeKind, *dbPathFlag)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, api.DiagnosticsRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		return writeJSON(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d best_fitness=%s mean_running_fitness=%.2f running=%d syntax_errors=%d instr_limit_errors=%d logic_errors=%d mean_length=%.2f best_length=%d rng_state=%d\n",
			d.Generation,
			report.FormatFitness(d.BestFitness),
			d.MeanRunningFitness,
			d.Running,
			d.SyntaxErrors,
			d.InstrLimitErrors,
			d.LogicErrors,
			d.MeanLength,
			d.BestLength,
			d.RNGState,
		)
	}
	return nil
}

func runTop(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show top programs for the most recent run from run index")
	limit := fs.Int("limit", 5, "max programs to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit top programs as JSON")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPathFlag := fs.String("db-path", dbPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector("top", *runID, *latest); err != nil {
		return err
	}
	if *limit < 0 {
		*limit = 0
	}

	client, err := newClient(*storeKind, *dbPathFlag)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	top, err := client.TopPrograms(ctx, api.TopProgramsRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if len(top) == 0 {
		fmt.Println("no top programs")
		return nil
	}
	if *jsonOut {
		return writeJSON(top)
	}

	for _, item := range top {
		result := fmt.Sprintf("output=%q", item.Output)
		if item.Error != "" {
			result = "error=" + item.Error
		}
		fmt.Printf("rank=%d fitness=%s instructions=%d %s program=%q\n",
			item.Rank, report.FormatFitness(item.Fitness), item.Instructions, result, item.Program)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := checkRunSelector("export", *runID, *latest); err != nil {
		return err
	}

	client, err := newClient("memory", "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, api.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

func newClient(storeKind, path string) (*api.Client, error) {
	return api.New(api.Options{
		StoreKind:  storeKind,
		DBPath:     path,
		RunsDir:    runsDir,
		ExportsDir: exportsDir,
	})
}

func checkRunSelector(command, runID string, latest bool) error {
	if runID != "" && latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if runID == "" && !latest {
		return fmt.Errorf("%s requires --run-id or --latest", command)
	}
	return nil
}

func writeJSON(value any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: bfevolvectl <run|exec|runs|fitness|diagnostics|top|export> [flags]", msg)
}
