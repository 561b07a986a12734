// Package retrieval 实现多阶段混合检索管线（基于 2025 年最佳实践）.
//
// 管线分四个阶段：
//
//  1. 语义检索 — 查询向量在块索引上的最近邻搜索（余弦相似度）
//  2. 词法检索 — 原始查询串上的 Okapi BM25 排序
//  3. 融合 — 两路结果 Min-Max 归一化后按权重加权合并
//  4. 重排序 — Cross-Encoder 对融合候选集逐对打分并截断 Top-K
//
// 所有排序在分数相同时按块 ID 升序决定，因此相同输入与索引状态下
// 重复调用产生完全一致的输出。重排序模型不可用时管线退化为融合阶段
// 排序并在结果中上报 SCORING_UNAVAILABLE，而不是让整个请求失败。
package retrieval
