package generator

import "context"

// LLMClient 抽象大模型客户端，便于替换/Mock。
//
// Stream 返回的 chunk 通道在结束时关闭，随后 error 通道至多产出一个错误再关闭。
// 调用方必须按到达顺序拼接 chunk。
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
	Stream(ctx context.Context, prompt Prompt) (<-chan Chunk, <-chan error)
}

// Chunk 流式响应的一个增量，可能附带搜索引用。
type Chunk struct {
	Text    string
	Sources []Source
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// failedStream 立即以 err 结束的流。
func failedStream(err error) (<-chan Chunk, <-chan error) {
	out := make(chan Chunk)
	errc := make(chan error, 1)
	close(out)
	errc <- err
	close(errc)
	return out, errc
}
