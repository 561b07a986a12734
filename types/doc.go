// Package types 定义 ragflow 的核心数据模型与统一错误类型.
//
// Chunk 是检索的最小单元：一段文本、它的稠密向量和来源元数据，
// 索引后不可变。Query、ScoredCandidate 与 RetrievalResult 是单次
// 检索调用的临时对象。
package types
