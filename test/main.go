package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Main is a replacement for the body of a TestMain function.
//
// It adds an "-app-trace" flag that writes OTel JSON traces of the code under
// test to the named file.
//
//	func TestMain(m *testing.M) {
//		test.Main(m)
//	}
//
// This function panics if any setup fails.
func Main(m *testing.M) {
	var code int
	var s setupState
	defer func() {
		if err := s.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "error while cleaning up: %v\n", err)
			code++
		}
		os.Exit(code)
	}()

	var tracePath string
	flag.StringVar(&tracePath, "app-trace", "", "path to write for application traces (otel JSON format)")
	flag.Parse()

	if tracePath != "" {
		if err := s.traceTo(tracePath); err != nil {
			panic(err)
		}
	}

	code = m.Run()
}

type setupState struct {
	out      *os.File
	provider *trace.TracerProvider
}

func (s *setupState) traceTo(path string) error {
	var err error
	s.out, err = os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(s.out))
	if err != nil {
		return fmt.Errorf("creating stdout exporter: %w", err)
	}
	r, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("test.start", time.Now().Format(time.RFC3339))))
	if err != nil {
		return fmt.Errorf("creating resource: %w", err)
	}
	s.provider = trace.NewTracerProvider(
		trace.WithSampler(trace.AlwaysSample()),
		trace.WithResource(r),
		trace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(s.provider)
	return nil
}

// Close flushes traces, if enabled, and closes the output file.
func (s *setupState) Close() error {
	if s.out == nil {
		return nil
	}
	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	return errors.Join(s.provider.Shutdown(ctx), s.out.Close())
}
