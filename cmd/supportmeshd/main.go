// Command supportmeshd runs the SupportMesh HTTP service.
//
// Configuration is environment driven (a .env file is honored when present):
//
//	SUPPORTMESH_ADDR     listen address (default :8080)
//	SUPPORTMESH_DB       sqlite database path (empty = in-memory store)
//	SUPPORTMESH_ORACLE   classifier backend: keyword | openai | anthropic
//	SUPPORTMESH_CATALOG  path to a YAML catalog (empty = built-in taxonomy)
//	SUPPORTMESH_LOG      log format: text | json
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/supportmesh"
	"github.com/hupe1980/supportmesh/httpapi"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/metrics"
	"github.com/hupe1980/supportmesh/oracle"
	oracleanthropic "github.com/hupe1980/supportmesh/oracle/anthropic"
	oracleopenai "github.com/hupe1980/supportmesh/oracle/openai"
	"github.com/hupe1980/supportmesh/store/sqlite"
	"github.com/hupe1980/supportmesh/taxonomy"
)

func main() {
	_ = godotenv.Load()

	logger := logging.New(logging.Config{
		Level:  slog.LevelInfo,
		Format: os.Getenv("SUPPORTMESH_LOG"),
	})

	var meshOpts []func(o *supportmesh.Options)

	if path := os.Getenv("SUPPORTMESH_DB"); path != "" {
		st, err := sqlite.Open(path)
		if err != nil {
			logger.Error("open sqlite store", "error", err)
			os.Exit(1)
		}
		defer st.Close()
		meshOpts = append(meshOpts, func(o *supportmesh.Options) { o.Store = st })
		logger.Info("using sqlite store", "path", path)
	}

	if path := os.Getenv("SUPPORTMESH_CATALOG"); path != "" {
		categories, err := taxonomy.LoadFile(path)
		if err != nil {
			logger.Error("load catalog", "error", err)
			os.Exit(1)
		}
		meshOpts = append(meshOpts, func(o *supportmesh.Options) { o.Categories = categories })
		logger.Info("using catalog file", "path", path)
	}

	classifier := buildClassifier(os.Getenv("SUPPORTMESH_ORACLE"), logger)
	recorder := metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)
	meshOpts = append(meshOpts, func(o *supportmesh.Options) {
		o.Classifier = classifier
		o.Logger = logger
		o.Metrics = recorder
	})

	mesh, err := supportmesh.New(meshOpts...)
	if err != nil {
		logger.Error("create mesh", "error", err)
		os.Exit(1)
	}

	api := httpapi.NewServer(mesh, func(o *httpapi.Options) { o.Logger = logger })
	mux := http.NewServeMux()
	mux.Handle("/", api.Handler())
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := os.Getenv("SUPPORTMESH_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	logger.Info("supportmesh listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func buildClassifier(backend string, logger logging.Logger) oracle.Classifier {
	switch backend {
	case "openai":
		logger.Info("using openai classifier")
		return oracleopenai.NewClassifier()
	case "anthropic":
		logger.Info("using anthropic classifier")
		return oracleanthropic.NewClassifier()
	default:
		logger.Info("using keyword classifier")
		return oracle.NewKeywordClassifier(oracle.DefaultKeywords())
	}
}
