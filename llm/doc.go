// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义聊天模型的统一请求、响应与回调模型。

# 核心接口

  - [Provider]：Completion / Stream / HealthCheck / Name，由
    llm/providers/openaicompat 实现
  - [CallbackHandler]：一次逻辑调用（含全部重试）的 Start / End / Error 回调，
    [Callbacks] 负责扇出

# 核心类型

  - [ChatRequest] / [ChatResponse] / [StreamChunk]：请求、响应与流式分片
  - [Error]：带错误码、HTTP 状态与是否可重试标记的统一错误
  - [FailedAttempt] / [FailedAttemptHandler]：单次失败尝试及其处理钩子，
    钩子返回非 nil 错误即终止重试

# 相关子包

  - llm/providers：OpenAI 兼容协议的公共编解码与代理解析
  - llm/retry：指数退避重试
  - llm/tokenizer：token 计数（tiktoken 与估算器）
*/
package llm
