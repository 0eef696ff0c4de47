// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package lmgateway 实现 "LLM Gateway" 语言模型节点。

节点声明模型、Base URL、认证令牌与采样选项，执行时把某个数据项的参数
映射为 openaicompat.Config，并挂上 nodeutil 提供的追踪回调与失败重试
处理器，返回就绪的聊天模型客户端。

选项映射规则：

  - responseFormat 非空时写入 response_format: {type: <值>}
  - reasoningEffort 非空时原样写入 reasoning_effort
  - timeout 缺省 60000 毫秒，maxRetries 缺省 2；显式给出的 0 原样传递
*/
package lmgateway
