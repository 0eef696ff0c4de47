// Package tokenizer 提供 Token 计数：tiktoken 精确计数，编码文件不可用时
// 自动退化为按字符类别估算，用于上游未返回 usage 时的 Token 统计。
package tokenizer
