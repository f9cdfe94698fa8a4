// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/perfana/perfana-adapt/services/adapt/engine"
	"github.com/perfana/perfana-adapt/services/adapt/routes"
	"github.com/perfana/perfana-adapt/services/adapt/store"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "perfana-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("adapt-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	port := envOrDefault("ADAPT_PORT", "12220")

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	mongoURL := envOrDefault("MONGO_URL", "mongodb://localhost:27017")
	dbName := envOrDefault("ADAPT_DB_NAME", "perfana")

	st, err := store.Connect(context.Background(), mongoURL, dbName)
	if err != nil {
		log.Fatalf("FATAL: could not connect to MongoDB at %s: %v", mongoURL, err)
	}
	defer func() {
		if err := st.Disconnect(context.Background()); err != nil {
			slog.Error("failed to disconnect from MongoDB", "error", err)
		}
	}()
	slog.Info("connected to MongoDB", "database", dbName)

	dispatcher := engine.NewDispatcher(
		envOrDefault("PERFANA_DS_API_URL", "http://localhost:8080"),
		os.Getenv("PERFANA_DS_API_USER"),
		os.Getenv("PERFANA_DS_API_PASSWORD"),
		nil)

	configResolver := engine.NewConfigResolver(st, st)
	baselineSelector := engine.NewBaselineSelector(st, st, st, dispatcher)
	controlGroupTracker := engine.NewControlGroupTracker(st, st, st, st, st, dispatcher)
	regressionResolver := engine.NewRegressionResolver(st, st, dispatcher)
	batchCoordinator := engine.NewBatchCoordinator(st, st, dispatcher, nil)

	router := gin.Default()
	router.Use(otelgin.Middleware("adapt-service"))

	routes.SetupRoutes(router, st, configResolver, baselineSelector,
		controlGroupTracker, regressionResolver, batchCoordinator)

	log.Println("Starting the adapt server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
