// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的网关指标采集。

# 概述

Collector 通过 promauto.With 注册到调用方传入的 Registerer，测试可使用
独立的 prometheus.NewRegistry()。所有指标按 namespace 隔离。

# 指标

  - llm_requests_total / llm_request_duration_seconds：按 provider、model 统计调用
  - llm_tokens_used_total：prompt 与 completion token 用量
  - llm_failed_attempts_total：失败尝试，outcome 为 retried 或 aborted
  - node_supply_total：SupplyData 结果
  - db_connections_open / db_connections_idle：运行数据库连接池
*/
package metrics
