// Command lambda serves the property filter API from AWS Lambda behind an
// API Gateway proxy integration.
//
// The database connection and route table are built once per execution
// context and reused across invocations.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-property-filter/internal/config"
	"github.com/tbourn/go-property-filter/internal/gateway"
	httpapi "github.com/tbourn/go-property-filter/internal/http"
	"github.com/tbourn/go-property-filter/internal/observability"
	"github.com/tbourn/go-property-filter/internal/repo"
	"github.com/tbourn/go-property-filter/internal/response"
	"github.com/tbourn/go-property-filter/internal/sysutil"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		sysutil.SetupLogging("info", "", false)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogging(cfg.LogLevel, cfg.AppName, cfg.LogPretty)

	ctx := context.Background()
	shutdown, err := observability.Setup(ctx, cfg.OTEL, sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version))
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup")
	}

	db, err := repo.Open(cfg.DB, cfg.OTEL.Enabled)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	f := response.New(cfg.CORS)
	d := httpapi.NewDispatcher(httpapi.NewRoutes(db, f), f)

	lambda.StartWithOptions(handler(d), lambda.WithEnableSIGTERM(func() {
		_ = shutdown(context.Background())
	}))
}

// handler adapts the dispatcher to the proxy integration. Each invocation
// logs through a logger carrying the Lambda request id.
func handler(d *httpapi.Dispatcher) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		lg := log.With().Str("aws_request_id", ev.RequestContext.RequestID).Logger()
		ctx = lg.WithContext(ctx)
		return gateway.ToAPIGateway(d.Dispatch(ctx, gateway.FromAPIGateway(ev))), nil
	}
}
