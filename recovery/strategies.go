package recovery

import "fmt"

// StrictStrategy implements a fail-fast recovery strategy.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy {
	return &StrictStrategy{}
}

func (s *StrictStrategy) OnError(ctx Context, err error, location Location) Action {
	return ActionFail
}

// LenientStrategy implements a best-effort recovery strategy: errors are
// accumulated and the caller is told to skip the offending entry. Discovery
// and loading use it so one bad document never sinks the whole scan.
type LenientStrategy struct {
	Errors []error
}

func NewLenientStrategy() *LenientStrategy {
	return &LenientStrategy{}
}

func (s *LenientStrategy) OnError(ctx Context, err error, location Location) Action {
	s.Errors = append(s.Errors, fmt.Errorf("[%s] object %d %d: %w", location.Component, location.ObjectNum, location.ObjectGen, err))
	return ActionSkip
}
