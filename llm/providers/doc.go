// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 是 OpenAI 兼容客户端的公共基础层：请求/响应线格式、
上游错误映射以及代理解析。具体客户端位于子包 openaicompat。

# 核心类型

  - OpenAICompat* 系列 — OpenAI 兼容 API 的请求/响应/工具调用结构体
  - OpenAICompatRequest.Extra — 合并到请求体顶层的额外字段（model kwargs）
  - UpstreamError — 解析后的上游错误体
  - ProxyFunc — 出站请求的代理解析函数

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - NetworkError — 传输层失败包装为可重试错误
  - ReadError — 读取并解析错误响应体
  - ConvertMessagesToOpenAI / ConvertToolsToOpenAI — 统一消息与工具格式转换
  - ToLLMChatResponse — OpenAI 兼容响应到 llm.ChatResponse 的转换
  - ChooseModel — 请求模型优先，否则使用默认模型
  - ProxyFromEnvironment / ProxyFromConfig — 基于 HTTPS_PROXY/HTTP_PROXY/NO_PROXY 的代理解析
*/
package providers
