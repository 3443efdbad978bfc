package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/meridianhq/portal-backend/internal/app"
)

func main() {
	a := app.New()
	defer a.Logger.Sync() //nolint:errcheck

	handler := a.Hooks()
	lambda.Start(func(ctx context.Context, raw json.RawMessage) (any, error) {
		return handler.Handle(ctx, raw)
	})
}
