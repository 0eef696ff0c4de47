// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 Prometheus 指标 HTTP 服务器的生命周期管理。

# 核心类型

  - Manager：封装 net/http.Server，在配置路径暴露 Gatherer 的指标，
    并提供 /healthz 探针。
  - Config：监听地址、指标路径、读写超时与优雅关闭超时。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务。
  - 优雅关闭：Shutdown 在超时内排空连接，可重复调用。
  - 错误传播：Errors() 返回异步错误通道。
*/
package server
