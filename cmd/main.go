package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/config"
	"policy-rag/internal/embedding"
	"policy-rag/internal/helper"
	"policy-rag/internal/indexer"
	"policy-rag/internal/logger"
	"policy-rag/internal/parser"
	"policy-rag/internal/rag"
	"policy-rag/internal/vectorstore"
)

const (
	configFilePath = "./configs/config.yaml"
)

const usage = `Usage: policyrag [-config path] <command> [flags]

Commands:
  extract   extract page chunks from the policy PDF
  build     embed the chunks and rebuild the vector collection
  chat      interactive question answering
  ask       answer a single query
  export    back up the chromem collection to a file
  import    restore the chromem collection from a file
`

func main() {
	configPath := flag.String("config", configFilePath, "Path to the config file")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Setup(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "extract":
		extractChunks(ctx, cfg, args)
	case "build":
		buildIndex(ctx, cfg, args)
	case "chat":
		chat(ctx, cfg)
	case "ask":
		ask(ctx, cfg, args)
	case "export":
		exportCollection(ctx, cfg, args)
	case "import":
		importCollection(ctx, cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
}

func extractChunks(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	pdfPath := fs.String("pdf", cfg.PDFPath, "Path to the policy PDF")
	outPath := fs.String("out", cfg.ChunksPath, "Path of the chunks JSON file")
	mode := fs.String("mode", cfg.Extract.Mode, "Extraction mode: native, ocr or auto")
	dryRun := fs.Bool("dry-run", false, "Dry run, print the chunks instead of saving them")
	_ = fs.Parse(args)

	if *pdfPath == "" {
		log.Fatal().Msg("Please provide the policy document using the -pdf flag")
	}

	extractCfg := cfg.Extract
	extractCfg.Mode = *mode

	chunks, err := parser.ExtractChunks(ctx, *pdfPath, extractCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error extracting document")
	}
	if len(chunks) == 0 {
		log.Warn().Str("file", *pdfPath).Msg("No text extracted, try -mode ocr")
	}

	if *dryRun {
		helper.PrettyPrint(chunks)
		return
	}

	if err := parser.WriteChunks(*outPath, chunks); err != nil {
		log.Fatal().Err(err).Msg("Error saving chunks")
	}
	log.Info().Msgf("Saved %d chunks to %s", len(chunks), *outPath)
}

func buildIndex(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	chunksPath := fs.String("chunks", cfg.ChunksPath, "Path of the chunks JSON file")
	_ = fs.Parse(args)

	report, err := runBuild(ctx, cfg, *chunksPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building index")
	}

	log.Info().Msgf("Stored %d of %d chunks in %s collection %q",
		report.Stored, report.Chunks, cfg.Store.Backend, cfg.Store.Collection)
}

// runBuild validates the chunk file before the store is opened, so a bad file leaves no trace
func runBuild(ctx context.Context, cfg *config.Config, chunksPath string) (*indexer.Report, error) {
	chunks, err := parser.LoadChunks(chunksPath)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, err
	}

	store, err := vectorstore.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	log.Info().Msgf("Embedding %s with %s", chunksPath, embedder.Name())
	report, err := indexer.Index(ctx, chunks, embedder, store)
	if err != nil {
		return nil, err
	}
	report.ChunksPath = chunksPath
	return report, nil
}

// newRAG opens the collection and tags every log line of the session
func newRAG(cfg *config.Config) (*rag.RAG, vectorstore.Store) {
	sessionID, err := helper.GenerateUUID()
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session")
	}
	log.Logger = log.With().Str("session", sessionID).Logger()

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	store, err := vectorstore.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}
	return rag.NewRAG(store, embedder, &cfg.RAG), store
}

func chat(ctx context.Context, cfg *config.Config) {
	r, store := newRAG(cfg)
	defer store.Close()

	if err := r.RunConsole(ctx, os.Stdin, os.Stdout); err != nil {
		log.Error().Err(err).Msg("Error reading input")
	}
}

func ask(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	query := fs.String("query", "", "Query to be answered")
	asJSON := fs.Bool("json", false, "Print the full response as JSON")
	_ = fs.Parse(args)

	if strings.TrimSpace(*query) == "" {
		log.Fatal().Msg("Please provide a query using the -query flag")
	}

	r, store := newRAG(cfg)
	defer store.Close()

	response, err := r.Query(ctx, strings.TrimSpace(*query))
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	if *asJSON {
		helper.PrettyPrint(response)
		return
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	for _, hit := range response.Hits {
		fmt.Printf("%s (page %d, similarity %.3f)\n", hit.ID, hit.Page, hit.Similarity)
	}
	fmt.Println()

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Content)
}

func exportCollection(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	filePath := fs.String("file", "", "Backup file, defaults to <store.path>/<collection>.chromem")
	_ = fs.Parse(args)

	if cfg.Store.Backend != vectorstore.BackendChromem {
		log.Fatal().Msgf("Export is only supported by the %s backend", vectorstore.BackendChromem)
	}

	db, err := vectorstore.OpenChromem(&cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector database manager")
	}
	defer db.Close()

	target := *filePath
	if target == "" {
		target = db.ExportPath()
	}
	if err := db.Export(ctx, target); err != nil {
		log.Fatal().Err(err).Msg("Error exporting collection")
	}
	log.Info().Msgf("Exported collection %q to %s", cfg.Store.Collection, target)
}

func importCollection(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	filePath := fs.String("file", "", "Backup file, defaults to <store.path>/<collection>.chromem")
	_ = fs.Parse(args)

	if cfg.Store.Backend != vectorstore.BackendChromem {
		log.Fatal().Msgf("Import is only supported by the %s backend", vectorstore.BackendChromem)
	}

	db, err := vectorstore.OpenChromem(&cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector database manager")
	}
	defer db.Close()

	if err := db.Import(ctx, *filePath); err != nil {
		log.Fatal().Err(err).Msg("Error importing collection")
	}

	count, err := db.Count(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Error counting documents")
	}
	log.Info().Msgf("Imported %d documents into collection %q", count, cfg.Store.Collection)
}
