package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/meridianhq/portal-backend/internal/app"
	"github.com/meridianhq/portal-backend/internal/migrations"
)

func main() {
	a := app.New()
	defer a.Logger.Sync() //nolint:errcheck

	runner := a.Migrations()
	lambda.Start(func(ctx context.Context) (migrations.Result, error) {
		return runner.Run(ctx), nil
	})
}
