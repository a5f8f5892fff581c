// ABOUTME: Mock Generator for tests
// ABOUTME: Replays canned fragments and records the histories it was asked about

package llm

import "context"

// MockGenerator implements Generator with canned output for testing.
type MockGenerator struct {
	Fragments []string // fragments replayed by Stream, in order
	StreamErr error    // terminal error delivered after Fragments, if set
	OpenErr   error    // error returned by Stream before any fragment
	TitleText string   // title returned by Title; DefaultTitle if empty

	Histories [][]Message // every history passed to Stream
	TitleQs   []string    // every query passed to Title
}

func (m *MockGenerator) Stream(ctx context.Context, history []Message) (<-chan Chunk, error) {
	m.Histories = append(m.Histories, history)
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}

	out := make(chan Chunk, len(m.Fragments)+1)
	go func() {
		defer close(out)
		for _, f := range m.Fragments {
			select {
			case out <- Chunk{Text: f}:
			case <-ctx.Done():
				return
			}
		}
		if m.StreamErr != nil {
			out <- Chunk{Err: m.StreamErr}
		}
	}()
	return out, nil
}

func (m *MockGenerator) Title(ctx context.Context, query string) string {
	m.TitleQs = append(m.TitleQs, query)
	if m.TitleText == "" {
		return DefaultTitle
	}
	return m.TitleText
}
