package sat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortEnvOnce sync.Once
	ortEnvErr  error
)

// initORT initializes the ONNX Runtime environment once per process.
func initORT(library string) error {
	ortEnvOnce.Do(func() {
		if library != "" {
			ort.SetSharedLibraryPath(library)
		}
		ortEnvErr = ort.InitializeEnvironment()
	})
	return ortEnvErr
}

// session wraps one ONNX Runtime session.
type session struct {
	s      *ort.DynamicAdvancedSession
	mu     sync.Mutex
	closed bool
}

func newSession(modelPath string) (*session, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("creating session options: %w", err)
	}
	defer func() { _ = options.Destroy() }()

	s, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return &session{s: s}, nil
}

// infer runs the model on one window of token ids and returns one logit per token.
func (s *session) infer(ctx context.Context, ids []int64) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("session is closed")
	}

	seqLen := int64(len(ids))
	mask := make([]int64, len(ids))
	for i := range mask {
		mask[i] = 1
	}

	idsTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), ids)
	if err != nil {
		return nil, fmt.Errorf("creating input_ids tensor: %w", err)
	}
	defer func() { _ = idsTensor.Destroy() }()

	maskTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), mask)
	if err != nil {
		return nil, fmt.Errorf("creating attention_mask tensor: %w", err)
	}
	defer func() { _ = maskTensor.Destroy() }()

	outputs := []ort.Value{nil}
	if err := s.s.Run([]ort.Value{idsTensor, maskTensor}, outputs); err != nil {
		return nil, fmt.Errorf("running inference: %w", err)
	}
	if outputs[0] == nil {
		return nil, fmt.Errorf("no output produced")
	}
	defer func() { _ = outputs[0].Destroy() }()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}
	data := tensor.GetData()
	if int64(len(data)) < seqLen {
		return nil, fmt.Errorf("output has %d values for %d tokens", len(data), seqLen)
	}
	logits := make([]float32, seqLen)
	copy(logits, data[:seqLen])
	return logits, nil
}

func (s *session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.s.Destroy()
}

// pool hands out sessions to concurrent callers.
type pool struct {
	sessions chan *session
	mu       sync.Mutex
	closed   bool
}

func newPool(modelPath string, size int) (*pool, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if size <= 0 {
		size = 1
	}

	p := &pool{sessions: make(chan *session, size)}
	for i := 0; i < size; i++ {
		s, err := newSession(modelPath)
		if err != nil {
			_ = p.close()
			return nil, fmt.Errorf("creating session %d: %w", i, err)
		}
		p.sessions <- s
	}
	return p, nil
}

// acquire blocks until a session is free or ctx is done.
func (p *pool) acquire(ctx context.Context) (*session, error) {
	select {
	case s, ok := <-p.sessions:
		if !ok {
			return nil, ErrPoolClosed
		}
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *pool) release(s *session) {
	if s == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		_ = s.close()
		return
	}
	select {
	case p.sessions <- s:
	default:
		_ = s.close()
	}
}

func (p *pool) close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sessions)
	p.mu.Unlock()

	var errs []error
	for s := range p.sessions {
		if err := s.close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
