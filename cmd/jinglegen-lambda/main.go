package main

import (
	"log"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/jinglegen/jinglegen/analysis"
	"github.com/jinglegen/jinglegen/internal/lambda"
	"github.com/jinglegen/jinglegen/logging"
	"github.com/jinglegen/jinglegen/ortb"
	"github.com/jinglegen/jinglegen/pipeline"
	"github.com/jinglegen/jinglegen/transcode"
)

func main() {
	cfg, err := lambda.LoadConfig()
	if err != nil {
		log.Fatal(err.Error())
	}

	logger, err := logging.NewProductionZap(cfg.LogLevel)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer logger.Sync()

	zl := logging.NewZapLogger(logger)
	logging.SetGlobalLogger(zl)

	profile, ok := ortb.ProfileByName(cfg.Profile)
	if !ok {
		logger.Warn("unknown profile, using local", zap.String("profile", cfg.Profile))
	}

	analyzer := pipeline.NewAnalyzer(
		transcode.NewDecoder(cfg.DecoderConfig()),
		analysis.NewExtractor(analysis.DefaultExtractorConfig(), analysis.LogObserver{Logger: zl}),
		ortb.NewAssembler(profile),
	)

	awslambda.Start(lambda.NewHandler(analyzer, cfg, logger).Handle)
}
