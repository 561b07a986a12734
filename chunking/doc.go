// Package chunking 将文档切分为适合嵌入和检索的文本块。
//
// 递归分块在段落、句子和单词边界上分割，token 计数由
// tiktoken 精确计算或按字符估算。
package chunking
