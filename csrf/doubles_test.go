package csrf

import (
	"net/http"
	"sync"
)

// recordingRepository holds a single token for every caller and counts calls.
type recordingRepository struct {
	mu        sync.Mutex
	tok       *Token
	loads     int
	saves     []*Token
	generated int
	loadErr   error
}

func newRecordingRepository() *recordingRepository {
	return &recordingRepository{}
}

func (r *recordingRepository) GenerateToken(*http.Request) (Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generated++
	v, err := newToken(16)
	if err != nil {
		return Token{}, err
	}
	return Token{HeaderName: DefaultHeaderName, ParameterName: DefaultParameterName, Value: v}, nil
}

func (r *recordingRepository) SaveToken(_ http.ResponseWriter, _ *http.Request, tok *Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, tok)
	r.tok = tok
	return nil
}

func (r *recordingRepository) LoadToken(*http.Request) (*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.tok, nil
}

func (r *recordingRepository) loadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

func (r *recordingRepository) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads, r.generated, r.saves = 0, 0, nil
}

// recordingRotation counts authentication events.
type recordingRotation struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingRotation) OnAuthentication(http.ResponseWriter, *http.Request) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	return nil
}

func (r *recordingRotation) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
