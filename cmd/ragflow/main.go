// =============================================================================
// RAGFlow 主入口
// =============================================================================
// 混合检索管线命令行工具
//
// 使用方法:
//
//	ragflow query --data ./docs "how do goroutines work"   # 索引并检索
//	ragflow query --config config.yaml --qa faq.json "..."
//	ragflow eval --data ./docs --dataset samples.json      # RAGAS 批量评估
//	ragflow version                                        # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/ragflow"
	"github.com/BaSui01/ragflow/config"
	"github.com/BaSui01/ragflow/eval"
	"github.com/BaSui01/ragflow/loader"
	"github.com/BaSui01/ragflow/types"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "query":
		runQuery(os.Args[2:])
	case "eval":
		runEval(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// dataFlags 为 query 和 eval 共享的数据来源参数
type dataFlags struct {
	configPath string
	dataDir    string
	pdfDir     string
	qaPath     string
}

func registerDataFlags(fs *flag.FlagSet) *dataFlags {
	df := &dataFlags{}
	fs.StringVar(&df.configPath, "config", "", "Path to config file (YAML)")
	fs.StringVar(&df.dataDir, "data", "", "Directory of .txt/.md documents to index")
	fs.StringVar(&df.pdfDir, "pdf", "", "Directory of PDF documents to index")
	fs.StringVar(&df.qaPath, "qa", "", "Path to Q&A pairs JSON file")
	return df
}

// =============================================================================
// 🔍 query 命令
// =============================================================================

func runQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	df := registerDataFlags(fs)
	topK := fs.Int("top-k", 5, "Number of chunks to return")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "query requires a question argument")
		os.Exit(1)
	}
	question := fs.Arg(0)

	ctx, cancel := signalContext()
	defer cancel()

	engine, logger := buildEngine(df.configPath)
	defer logger.Sync()

	indexData(ctx, engine, logger, df)

	result, err := engine.Ask(ctx, question, *topK)
	if err != nil {
		logger.Fatal("retrieval failed", zap.Error(err))
	}
	printJSON(result)
}

// =============================================================================
// 📊 eval 命令
// =============================================================================

func runEval(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	df := registerDataFlags(fs)
	datasetPath := fs.String("dataset", "", "Path to evaluation samples JSON file")
	fs.Parse(args)

	if *datasetPath == "" {
		fmt.Fprintln(os.Stderr, "eval requires --dataset")
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	engine, logger := buildEngine(df.configPath)
	defer logger.Sync()

	// 提供数据来源时先建索引，缺少上下文的样本由评估器走检索补齐
	if df.dataDir != "" || df.pdfDir != "" || df.qaPath != "" {
		indexData(ctx, engine, logger, df)
	}

	samples, err := loadSamples(*datasetPath)
	if err != nil {
		logger.Fatal("failed to load dataset", zap.Error(err))
	}

	evaluator, err := engine.Evaluator()
	if err != nil {
		logger.Fatal("failed to build evaluator", zap.Error(err))
	}

	report, err := evaluator.Evaluate(ctx, samples)
	if err != nil {
		logger.Fatal("evaluation failed", zap.Error(err))
	}
	printJSON(report)
}

func loadSamples(path string) ([]eval.Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	var samples []eval.Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return samples, nil
}

// =============================================================================
// 🔧 引擎构建与数据索引
// =============================================================================

func buildEngine(configPath string) (*ragflow.Engine, *zap.Logger) {
	loaderCfg := config.NewLoader()
	if configPath != "" {
		loaderCfg = loaderCfg.WithConfigPath(configPath)
	}
	cfg, err := loaderCfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Log.BuildLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Starting RAGFlow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	engine, err := ragflow.New(cfg, ragflow.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to build engine", zap.Error(err))
	}
	return engine, logger
}

// indexData 按参数加载各来源的数据并建立索引
func indexData(ctx context.Context, engine *ragflow.Engine, logger *zap.Logger, df *dataFlags) {
	if df.dataDir == "" && df.pdfDir == "" && df.qaPath == "" {
		logger.Fatal("no data source: use --data, --pdf or --qa")
	}

	var docs []loader.Document
	if df.dataDir != "" {
		d, err := loader.NewTextLoader(logger).LoadDir(df.dataDir)
		if err != nil {
			logger.Fatal("failed to load text documents", zap.Error(err))
		}
		docs = append(docs, d...)
	}
	if df.pdfDir != "" {
		d, err := loader.NewPDFLoader(logger).LoadDir(df.pdfDir)
		if err != nil {
			logger.Fatal("failed to load PDF documents", zap.Error(err))
		}
		docs = append(docs, d...)
	}

	var qaChunks []types.Chunk
	if df.qaPath != "" {
		c, err := loader.NewQALoader(logger).LoadFile(df.qaPath)
		if err != nil {
			logger.Fatal("failed to load Q&A pairs", zap.Error(err))
		}
		qaChunks = c
	}

	if len(docs) > 0 {
		count, err := engine.IndexDocuments(ctx, docs)
		if err != nil {
			logger.Fatal("failed to index documents", zap.Error(err))
		}
		logger.Info("documents indexed",
			zap.Int("documents", len(docs)),
			zap.Int("chunks", count))
	}
	if len(qaChunks) > 0 {
		if err := engine.IndexChunks(ctx, qaChunks); err != nil {
			logger.Fatal("failed to index Q&A pairs", zap.Error(err))
		}
		logger.Info("qa pairs indexed", zap.Int("chunks", len(qaChunks)))
	}
}

// signalContext 返回在 SIGINT/SIGTERM 时取消的 context
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("RAGFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`RAGFlow - Hybrid Retrieval Pipeline

Usage:
  ragflow <command> [options]

Commands:
  query     Index documents and run a retrieval query
  eval      Run RAGAS evaluation over a sample dataset
  version   Show version information
  help      Show this help message

Options for 'query' and 'eval':
  --config <path>   Path to configuration file (YAML)
  --data <dir>      Directory of .txt/.md documents
  --pdf <dir>       Directory of PDF documents
  --qa <path>       Q&A pairs JSON file

Examples:
  ragflow query --data ./docs "how do goroutines work"
  ragflow query --config config.yaml --qa faq.json --top-k 3 "pricing"
  ragflow eval --data ./docs --dataset samples.json
  ragflow version`)
}
