package observe_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jonwraymond/tokengate/observe"
)

func ExampleConfig_Validate() {
	cfg := observe.Config{
		ServiceName: "tokengate",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "zipkin"},
	}
	err := cfg.Validate()
	fmt.Println(errors.Is(err, observe.ErrInvalidTracingExporter))
	// Output: true
}

func ExampleNewLoggerWithWriter() {
	var sb strings.Builder
	logger := observe.NewLoggerWithWriter("info", &sb)

	logger.Warn(context.Background(), "login failed",
		observe.Field{Key: "username", Value: "john"},
		observe.Field{Key: "password", Value: "hunter2"},
	)

	out := sb.String()
	fmt.Println(strings.Contains(out, `"username":"john"`))
	fmt.Println(strings.Contains(out, "hunter2"))
	// Output:
	// true
	// false
}

func ExampleNewObserver() {
	obs, err := observe.NewObserver(context.Background(), observe.Config{
		ServiceName: "tokengate",
		Logging:     observe.LoggingConfig{Enabled: true, Level: "error"},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()

	fmt.Println(obs.Logger() != nil)
	// Output: true
}
