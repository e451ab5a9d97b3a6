package generator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// fixedRand 总是返回 v（超出范围时取 n-1）。
type fixedRand struct{ v int }

func (r fixedRand) Intn(n int) int {
	if r.v >= n {
		return n - 1
	}
	return r.v
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id%d", s.n)
}

func newTestProcessor(opts ...PostProcessorOption) *PostProcessor {
	ids := &seqIDs{}
	base := []PostProcessorOption{
		WithRand(fixedRand{}),
		WithClock(func() time.Time { return fixedNow }),
		WithIDFunc(ids.next),
	}
	return NewPostProcessor(append(base, opts...)...)
}

type fakeResponse struct {
	text string
	err  error
}

// fakeLLM 按顺序返回预设响应，最后一个重复使用。
type fakeLLM struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     []Prompt

	chunks    []Chunk
	streamErr error
}

func (f *fakeLLM) Complete(_ context.Context, p Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	if len(f.responses) == 0 {
		return "", fmt.Errorf("no response configured")
	}
	r := f.responses[min(len(f.calls)-1, len(f.responses)-1)]
	return r.text, r.err
}

func (f *fakeLLM) Stream(_ context.Context, p Prompt) (<-chan Chunk, <-chan error) {
	f.mu.Lock()
	f.calls = append(f.calls, p)
	chunks, streamErr := f.chunks, f.streamErr
	f.mu.Unlock()

	out := make(chan Chunk, len(chunks))
	errc := make(chan error, 1)
	for _, c := range chunks {
		out <- c
	}
	close(out)
	if streamErr != nil {
		errc <- streamErr
	}
	close(errc)
	return out, errc
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeLLM) callKinds() []Operation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Operation, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Kind)
	}
	return out
}

// fastRetry 测试用：保持 3 次尝试，退避缩短到 1ms。
func fastRetry() RetryPolicy {
	return RetryPolicy{Attempts: 3, InitialInterval: time.Millisecond, Multiplier: 2}
}

func galleryJSON(posts, comments int) string {
	s := `{"galleryTitle": "[cats] 갤러리", "posts": [`
	for i := 0; i < posts; i++ {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(`{"title": "글 %d", "author": "작성자%d", "content": "내용 %d", "comments": [`, i, i, i)
		for j := 0; j < comments; j++ {
			if j > 0 {
				s += ","
			}
			s += fmt.Sprintf(`{"author": "댓글러%d", "text": "댓글 %d"}`, j, j)
		}
		s += "]}"
	}
	return s + "]}"
}
