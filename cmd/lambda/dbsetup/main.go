package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/meridianhq/portal-backend/internal/app"
	"github.com/meridianhq/portal-backend/internal/database"
)

func main() {
	a := app.New()
	defer a.Logger.Sync() //nolint:errcheck

	provisioner := a.Provisioner()
	lambda.Start(func(ctx context.Context, req database.Request) (database.Result, error) {
		return provisioner.Apply(ctx, req), nil
	})
}
