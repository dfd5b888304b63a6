// Command lambda-http serves the analysis API behind an API Gateway HTTP API.
//
//	GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"rmn-analyst/internal/bootstrap"
	"rmn-analyst/internal/shared/config"
	"rmn-analyst/internal/shared/server/respond"
	"rmn-analyst/internal/shared/telemetry"
)

// coldStart builds the router once per execution environment. A failed build
// is remembered, so every invocation in that environment reports it.
type coldStart struct {
	build func() (*gin.Engine, error)

	once    sync.Once
	adapter *ginadapter.GinLambdaV2
	err     error
}

func newColdStart(build func() (*gin.Engine, error)) *coldStart {
	return &coldStart{build: build}
}

func (s *coldStart) serve(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	s.once.Do(func() {
		router, err := s.build()
		if err != nil {
			s.err = err
			return
		}
		s.adapter = ginadapter.NewV2(router)
	})
	if s.err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": s.err.Error(), "path": req.RawPath})
		return bootstrapFailure(), nil
	}
	defer telemetry.Sync()
	return s.adapter.ProxyWithContext(ctx, req)
}

func bootstrapFailure() events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: "service failed to start", Code: "bootstrap_failed"})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusInternalServerError,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func buildRouter() (*gin.Engine, error) {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		return nil, err
	}
	return app.Router, nil
}

func main() {
	lambda.Start(newColdStart(buildRouter).serve)
}
