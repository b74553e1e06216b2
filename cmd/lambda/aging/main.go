package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/dmitrijs2005/gophtodo/internal/server"
	"github.com/dmitrijs2005/gophtodo/internal/server/config"
)

func main() {

	ctx := context.Background()
	app, err := server.NewApp(ctx, config.LoadConfig())

	if err != nil {
		log.Fatalf("%v", err)
	}

	lambda.Start(app.SQSHandler())

}
