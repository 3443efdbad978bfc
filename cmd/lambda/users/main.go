package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/meridianhq/portal-backend/internal/app"
	"github.com/meridianhq/portal-backend/internal/directory"
)

func main() {
	a := app.New()
	defer a.Logger.Sync() //nolint:errcheck

	handler := a.Users()
	lambda.Start(func(ctx context.Context, event directory.Event) (map[string]any, error) {
		return handler.Handle(ctx, event)
	})
}
