// Package telemetry 封装 OpenTelemetry SDK 初始化，为网关节点提供
// OTLP gRPC 导出的 TracerProvider 与 MeterProvider。
// 遥测关闭时返回 noop 实现，不连接任何外部服务。
package telemetry
