package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"lambda-http/pkg/httperr"
	"lambda-http/pkg/lambda"
	"lambda-http/pkg/server"
)

func handler(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	container, err := server.GetConnectionManager().GetContainer()
	if err != nil {
		logrus.WithError(err).Error("Failed to initialize container")
		return lambda.ToAPIGateway(httperr.Internal("An unknown error occurred").Response()), nil
	}

	// Convert API Gateway event to generic request
	raw, err := lambda.FromAPIGateway(ctx, event)
	if err != nil {
		container.Logger.WithError(err).WithField("request_id", event.RequestContext.RequestID).Warn("Invalid API Gateway event")
		return lambda.ToAPIGateway(httperr.BadRequest("Invalid request", httperr.WithCause(err)).Response()), nil
	}

	resp := container.Serve(raw, event.RequestContext.RequestID, event.RequestContext.Identity.SourceIP)
	return lambda.ToAPIGateway(resp), nil
}

func main() {
	awslambda.Start(handler)
}
