package server

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/dmitrijs2005/gophtodo/internal/server/config"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
	"github.com/dmitrijs2005/gophtodo/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.HTTPAddr = "127.0.0.1:0"
	c.HealthAddr = "127.0.0.1:0"
	c.AgingDelay = 10 * time.Millisecond
	return c
}

func TestNewApp_RejectsInvalidConfig(t *testing.T) {
	c := memoryConfig()
	c.StoreBackend = "cassandra"

	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "unknown store backend")
}

func TestNewApp_RejectsUnknownLogBackend(t *testing.T) {
	c := memoryConfig()
	c.LogBackend = "logrus"

	_, err := NewApp(context.Background(), c)
	assert.ErrorContains(t, err, "unknown log backend")
}

func TestApp_LambdaHandlers(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, memoryConfig())
	require.NoError(t, err)
	defer app.Close(ctx)

	h := app.APIGatewayHandler()
	resp, err := h(ctx, events.APIGatewayV2HTTPRequest{
		RawPath: "/todos",
		Body:    `{"title":"buy milk"}`,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{Method: http.MethodPost},
		},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Todo
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &created))

	body, err := json.Marshal(models.AgingTask{TaskID: created.ID})
	require.NoError(t, err)

	out, err := app.SQSHandler()(ctx, events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m1", Body: string(body)},
		{MessageId: "m2", Body: `{"taskId":"missing"}`},
	}})
	require.NoError(t, err)
	require.Len(t, out.BatchItemFailures, 1)
	assert.Equal(t, "m2", out.BatchItemFailures[0].ItemIdentifier)

	got, err := app.todos.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.Aged)
}

func TestApp_RunAgesInProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx, memoryConfig())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	todo, err := app.todos.Create(ctx, services.CreateInput{Title: "water plants"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		got, err := app.todos.Get(ctx, todo.ID)
		return err == nil && got.Aged
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after context cancel")
	}
}

func TestApp_RunWorkerNeedsQueue(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, memoryConfig())
	require.NoError(t, err)
	defer app.Close(ctx)

	assert.Error(t, app.RunWorker(ctx))
}
