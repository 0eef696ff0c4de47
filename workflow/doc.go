// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 定义宿主与插件节点之间的契约。

# 概述

节点以 NodeDescription 声明自身（连接类型、参数 Schema、编辑器分类），
在执行时通过 SupplyDataFunctions 读取参数、记录运行数据并发布 AI 事件。
SupplyDataNode 不产出数据项，而是把一个就绪对象（例如聊天模型客户端）
交给与之相连的节点。

# 核心接口与类型

  - NodeDescription / Property — 节点描述与参数 Schema
  - SupplyDataNode             — Description() 与 SupplyData(ctx, SupplyInput)
  - SupplyDataFunctions        — 节点在执行期可用的宿主 API
  - ExecutionContext           — SupplyDataFunctions 的默认实现（运行数据写入 rundata.Store）
  - Registry                   — 按名称注册与查找节点类型
  - Runner                     — 以 errgroup 限流并发为多个数据项调用 SupplyData
  - ParameterError / NodeAPIError — 参数解析错误与外部 API 错误

# 参数解析

ResolveParameter 支持点号路径（model.value）、资源定位器的字符串简写、
Schema 默认值与调用方 fallback；缺失或为空的必填参数返回 ParameterError。
*/
package workflow
