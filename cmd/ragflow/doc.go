// Copyright (c) RAGFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 RAGFlow 命令行程序入口。

# 概述

cmd/ragflow 是检索管线的可执行入口，提供文档索引、交互查询和
RAGAS 批量评估子命令。程序支持 YAML 配置文件加载、环境变量覆盖
和结构化日志（zap）。

# 主要能力

  - 子命令：query（索引并检索）、eval（批量评估）、version
  - 数据来源：文本/Markdown 目录、PDF 目录、问答对 JSON
  - 评估数据集：JSON 样本数组（question/answer/contexts/ground_truth）
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
