package recovery_test

import (
	"errors"
	"testing"

	"github.com/wudi/pdfmerge/recovery"
)

func TestStrictStrategyFails(t *testing.T) {
	s := recovery.NewStrictStrategy()
	action := s.OnError(nil, errors.New("bad object"), recovery.Location{ObjectNum: 3})
	if action != recovery.ActionFail {
		t.Fatalf("expected ActionFail, got %v", action)
	}
}

func TestLenientStrategyAccumulatesAndSkips(t *testing.T) {
	s := recovery.NewLenientStrategy()

	first := errors.New("bad header")
	second := errors.New("bad stream")
	if got := s.OnError(nil, first, recovery.Location{ObjectNum: 3, Component: "Parser"}); got != recovery.ActionSkip {
		t.Fatalf("expected ActionSkip, got %v", got)
	}
	if got := s.OnError(nil, second, recovery.Location{ObjectNum: 7, Component: "Parser"}); got != recovery.ActionSkip {
		t.Fatalf("expected ActionSkip, got %v", got)
	}

	if len(s.Errors) != 2 {
		t.Fatalf("expected 2 recorded errors, got %d", len(s.Errors))
	}
	if !errors.Is(s.Errors[0], first) || !errors.Is(s.Errors[1], second) {
		t.Fatalf("recorded errors lost their causes: %v", s.Errors)
	}
}
