// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 lmgateway 命令行程序入口。

# 子命令

  - describe：以 JSON 或 YAML 打印 LLM Gateway 节点描述
  - chat：加载配置，按 item 数供给模型，并通过 item 0 发送一次对话，
    最后打印本次执行记录的运行数据条数
  - migrate：对 postgres/mysql 运行数据库执行 up、down、version
  - version：显示版本信息

# 运行时组件

chat 依次初始化 zap 日志、OpenTelemetry、Prometheus 指标（可选的
/metrics 服务）、运行数据存储，然后通过 workflow.Runner 调用节点的
SupplyData。构建信息 Version、BuildTime、GitCommit 通过 ldflags 注入。
*/
package main
