// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "errcascade"

// OTelConfig OpenTelemetry 配置
type OTelConfig struct {
	ServiceName    string
	ExportEndpoint string
	Insecure       bool
}

// InitTracer 初始化 OpenTelemetry tracer 并设为全局 provider
func InitTracer(ctx context.Context, config OTelConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.ExportEndpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartPredictSpan 开始一次级联预测的 span
func StartPredictSpan(ctx context.Context, pattern string, maxLength int, minConfidence float64) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "cascade.predict",
		trace.WithAttributes(
			attribute.String("cascade.pattern", pattern),
			attribute.Int("cascade.max_length", maxLength),
			attribute.Float64("cascade.min_confidence", minConfidence),
		),
	)
}

// StartUpdateSpan 开始一次增量更新的 span
func StartUpdateSpan(ctx context.Context, pattern string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "cascade.update",
		trace.WithAttributes(
			attribute.String("cascade.pattern", pattern),
		),
	)
}

// StartSeedSpan 开始启动期历史加载的 span
func StartSeedSpan(ctx context.Context, occurrences int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "cascade.seed",
		trace.WithAttributes(
			attribute.Int("cascade.occurrences", occurrences),
		),
	)
}

// RecordError 在 span 上记录错误并标记状态
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
